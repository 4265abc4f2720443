package api

import (
	"github.com/dmitrymomot/tempshare/handler"
)

type cloudFilesRequest struct {
	Provider string `query:"provider"`
	Prefix   string `query:"prefix"`
}

type cloudFileRequest struct {
	Provider string `query:"provider"`
	FilePath string `query:"file_path"`
}

type cloudLinkRequest struct {
	Provider          string `query:"provider"`
	FilePath          string `query:"file_path"`
	ExpirationMinutes int    `query:"expiration_minutes"`
}

func (a *API) cloudFiles(ctx handler.Context, req cloudFilesRequest) handler.Response {
	files, err := a.svc.CloudList(ctx, req.Provider, req.Prefix)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(map[string]any{"files": files})
}

func (a *API) deleteCloudFile(ctx handler.Context, req cloudFileRequest) handler.Response {
	if err := a.svc.CloudDelete(ctx, req.Provider, req.FilePath); err != nil {
		return handler.Error(asInternal(err))
	}
	return handler.Success(nil)
}

func (a *API) cloudLink(ctx handler.Context, req cloudLinkRequest) handler.Response {
	link, err := a.svc.CloudLink(ctx, req.Provider, req.FilePath, req.ExpirationMinutes)
	if err != nil {
		return handler.Error(err)
	}
	return handler.Success(map[string]any{
		"url":                link.URL,
		"expires_in_minutes": link.ExpiresInMinutes,
	})
}
