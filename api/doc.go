// Package api exposes the share service over HTTP.
//
// Routes are typed handlers built with handler.Wrap and the binder package.
// Errors render as {"success": false, "error": "..."}; the share error
// taxonomy maps to 404 (not found), 410 (expired), 403 (access limit),
// 501 (unsupported), 502 (backend) and 500 (orphaned object or internal).
//
//	a, err := api.New(svc,
//		api.WithLogger(log),
//		api.WithMetricsRegistry(reg),
//		api.WithMaxUploadSize(cfg.MaxUploadSize),
//	)
//	if err != nil {
//		return err
//	}
//	return server.Run(ctx, a.Router())
package api
