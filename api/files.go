package api

import (
	"mime/multipart"
	"net/http"

	"github.com/dmitrymomot/tempshare/handler"
	"github.com/dmitrymomot/tempshare/pkg/registry"
	"github.com/dmitrymomot/tempshare/pkg/share"
)

type fileRequest struct {
	ID string `path:"id"`
}

type createLinkRequest struct {
	File              *multipart.FileHeader `file:"file"`
	ExpirationMinutes *int                  `form:"expiration_minutes"`
	AccessLimit       *int                  `form:"access_limit"`
}

type uploadRequest struct {
	File              *multipart.FileHeader `file:"file"`
	Provider          string                `form:"provider"`
	Folder            string                `form:"folder"`
	ExpirationMinutes *int                  `form:"expiration_minutes"`
	AccessLimit       *int                  `form:"access_limit"`
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// upload opens the multipart file and hands it to the service. A missing
// file leaves Body nil so the service reports the validation error.
func (a *API) upload(ctx handler.Context, fh *multipart.FileHeader, in share.UploadInput) (*share.UploadResult, error) {
	if fh != nil {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()

		in.Name = fh.Filename
		in.Size = fh.Size
		in.Body = f
	}
	return a.svc.Upload(ctx, in)
}

func (a *API) getFile(ctx handler.Context, req fileRequest) handler.Response {
	d, err := a.svc.Open(ctx, req.ID)
	if err != nil {
		return handler.Error(asInternal(err))
	}
	return delivery{svc: a.svc, d: d}
}

// delivery streams an admitted file and commits the access once the body
// was fully written. Any other outcome releases the reserved slot.
type delivery struct {
	svc *share.Service
	d   *share.Delivery
}

func (r delivery) Render(w http.ResponseWriter, req *http.Request) error {
	defer r.d.Body.Close()
	defer r.svc.Release(r.d)

	return handler.Stream(r.d.Body, r.d.ContentType,
		handler.WithInlineFilename(r.d.Record.OriginalName),
		handler.WithContentLength(r.d.Record.Size),
		handler.OnComplete(func() { r.svc.Commit(req.Context(), r.d) }),
	).Render(w, req)
}

func (a *API) deleteFile(ctx handler.Context, req fileRequest) handler.Response {
	if err := a.svc.Delete(ctx, req.ID); err != nil {
		return handler.Error(asInternal(err))
	}
	return handler.Success(nil)
}

func (a *API) createTempLink(ctx handler.Context, req createLinkRequest) handler.Response {
	res, err := a.upload(ctx, req.File, share.UploadInput{
		Provider:          a.svc.DefaultProvider(),
		ExpirationMinutes: intOr(req.ExpirationMinutes, share.DefaultExpirationMinutes),
		AccessLimit:       intOr(req.AccessLimit, registry.Unlimited),
	})
	if err != nil {
		return handler.Error(err)
	}

	fields := map[string]any{
		"file_id":      res.FileID,
		"path":         res.Path,
		"expires_at":   res.ExpiresAt,
		"access_limit": res.AccessLimit,
	}
	if res.URL != "" {
		fields["url"] = res.URL
	}
	return handler.Success(fields)
}

func (a *API) uploadFile(ctx handler.Context, req uploadRequest) handler.Response {
	res, err := a.upload(ctx, req.File, share.UploadInput{
		Provider:          req.Provider,
		Folder:            req.Folder,
		ExpirationMinutes: intOr(req.ExpirationMinutes, share.DefaultExpirationMinutes),
		AccessLimit:       intOr(req.AccessLimit, registry.Unlimited),
	})
	if err != nil {
		return handler.Error(err)
	}

	fields := map[string]any{
		"file_id":  res.FileID,
		"path":     res.Path,
		"filename": res.Filename,
		"size":     res.Size,
		"provider": res.Provider,
	}
	if res.URL != "" {
		fields["url"] = res.URL
	}
	return handler.Success(fields)
}

func (a *API) listTempFiles(ctx handler.Context, _ struct{}) handler.Response {
	return handler.JSON(map[string]any{"files": a.svc.List(ctx)})
}
