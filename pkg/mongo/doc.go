// Package mongo connects to MongoDB with the v2 driver for the registry's
// MongoDB document store. Settings come from MONGODB_* environment variables.
//
//	client, coll, err := mongo.NewCollection(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Disconnect(context.Background())
//	doc := registry.NewMongoDocument(coll, "")
package mongo
