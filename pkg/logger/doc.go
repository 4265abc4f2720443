// Package logger builds *slog.Logger instances from functional options and
// keeps attribute names consistent across the service.
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.AppEnv, cfg.AppName),
//		logger.WithContextExtractors(requestid.LogExtractor()),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "file uploaded",
//		logger.FileID(id),
//		logger.Provider("aws_s3"),
//		logger.Size(n),
//	)
//
// Error and Errors return an empty attribute for nil errors, so they can be
// passed unconditionally.
package logger
