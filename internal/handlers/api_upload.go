package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"webmvc/internal/cache"
	"webmvc/internal/models"
	"webmvc/internal/storage"
)

// photoUploadResult is the body of a product photo upload.
type photoUploadResult struct {
	Photos []models.ProductPhoto `json:"photos"`
	Errors []string              `json:"errors,omitempty"`
}

func parseUpload(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadRequest)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid or too large multipart body")
		return false
	}
	return true
}

// UploadProductPhotos stores the "files" parts as photos of the product
// named by the productId form field.
func (a *API) UploadProductPhotos(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	productID, err := strconv.ParseInt(r.FormValue("productId"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "productId is required")
		return
	}
	ctx := r.Context()
	product, err := a.stores.Products.FindByID(ctx, productID)
	if err != nil {
		internalError(w, "api find product failed", err)
		return
	}
	if product == nil {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "No files uploaded")
		return
	}

	saved, errs := savePhotos(ctx, a.bucket, a.stores.Photos, product.ID, files)
	if len(saved) == 0 {
		respondError(w, http.StatusBadRequest, strings.Join(errs, " "))
		return
	}
	slog.Info("product photos uploaded via api", "product_id", product.ID, "count", len(saved))
	dropKind(ctx, a.pageCache, cache.KindProduct)
	respond(w, http.StatusCreated, strconv.Itoa(len(saved))+" photo(s) uploaded", photoUploadResult{Photos: saved, Errors: errs})
}

// ProductPhotos answers the photos of a product.
func (a *API) ProductPhotos(w http.ResponseWriter, r *http.Request) {
	productID, ok := int64Param(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	ctx := r.Context()
	product, err := a.stores.Products.FindByID(ctx, productID)
	if err != nil {
		internalError(w, "api find product failed", err)
		return
	}
	if product == nil {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}
	withPhotoURLs(a.bucket, product)
	respond(w, http.StatusOK, "Product photos retrieved successfully", nonNil(product.Photos))
}

// DeleteProductPhoto removes one photo and its file.
func (a *API) DeleteProductPhoto(w http.ResponseWriter, r *http.Request) {
	photoID, ok := int64Param(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid photo id")
		return
	}
	ctx := r.Context()
	ph, err := a.stores.Photos.FindByID(ctx, photoID)
	if err != nil {
		internalError(w, "api find photo failed", err)
		return
	}
	if ph == nil {
		respondError(w, http.StatusNotFound, "Photo not found")
		return
	}
	if err := a.stores.Photos.Delete(ctx, ph.ID); err != nil {
		internalError(w, "api delete photo failed", err)
		return
	}
	removePhotoFile(ctx, a.bucket, ph)
	if product, err := a.stores.Products.FindByID(ctx, ph.ProductID); err == nil && product != nil {
		dropKind(ctx, a.pageCache, cache.KindProduct)
	}
	respond(w, http.StatusOK, "Photo deleted successfully", nil)
}

// UploadGeneral stores the "file" part under the sanitized folder query
// value.
func (a *API) UploadGeneral(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	f, fh, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer f.Close()

	checked, err := storage.CheckUpload(f, fh)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, storage.ErrTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		respondError(w, status, uploadMessage(fh.Filename, err))
		return
	}

	folder := storage.SanitizeFolder(r.URL.Query().Get("folder"))
	name := storage.NewFileName(checked.Ext)
	key := path.Join(folder, name)
	if err := a.bucket.Put(r.Context(), key, checked.ContentType, checked.File, checked.Size); err != nil {
		internalError(w, "api general upload failed", err)
		return
	}
	slog.Info("file uploaded via api", "key", key, "size", checked.Size)
	respond(w, http.StatusCreated, "File uploaded", models.UploadedFile{
		FileName:     name,
		OriginalName: checked.Original,
		URL:          a.bucket.URL(key),
		Size:         checked.Size,
		ContentType:  checked.ContentType,
	})
}
