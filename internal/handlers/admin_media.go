package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"webmvc/internal/cache"
	"webmvc/internal/models"
	"webmvc/internal/render"
	"webmvc/internal/storage"
	"webmvc/internal/store"
)

const (
	// maxUploadRequest caps a multipart request carrying several files.
	maxUploadRequest = 100 << 20

	// multipartMemory is the part of a multipart form kept in memory.
	multipartMemory = 32 << 20
)

// uploadMessage turns a storage validation error into a user-facing text.
func uploadMessage(name string, err error) string {
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return name + ": file is larger than 10 MB."
	case errors.Is(err, storage.ErrNotImage):
		return name + ": file is not a JPEG, PNG, GIF or WebP image."
	case errors.Is(err, storage.ErrExtNotAllowed):
		return name + ": file type is not allowed."
	}
	return name + ": upload failed."
}

// savePhotos validates and stores uploaded product photos. Files that fail
// validation are skipped and reported in the returned messages.
func savePhotos(ctx context.Context, bucket storage.Bucket, photos *store.PhotoStore, productID int64, files []*multipart.FileHeader) ([]models.ProductPhoto, []string) {
	var saved []models.ProductPhoto
	var errs []string
	for _, fh := range files {
		ph, err := savePhoto(ctx, bucket, photos, productID, fh)
		if err != nil {
			slog.Warn("photo upload rejected", "product_id", productID, "file", fh.Filename, "error", err)
			errs = append(errs, uploadMessage(fh.Filename, err))
			continue
		}
		saved = append(saved, *ph)
	}
	return saved, errs
}

func savePhoto(ctx context.Context, bucket storage.Bucket, photos *store.PhotoStore, productID int64, fh *multipart.FileHeader) (*models.ProductPhoto, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	checked, err := storage.CheckImage(f, fh)
	if err != nil {
		return nil, err
	}

	name := storage.NewFileName(checked.Ext)
	key := storage.ProductPhotoKey(productID, name)
	if err := bucket.Put(ctx, key, checked.ContentType, checked.File, checked.Size); err != nil {
		return nil, fmt.Errorf("store photo: %w", err)
	}

	ph, err := photos.Create(ctx, productID, name)
	if err != nil {
		if derr := bucket.Delete(ctx, key); derr != nil {
			slog.Warn("remove orphaned photo", "key", key, "error", derr)
		}
		return nil, err
	}
	ph.URL = bucket.URL(key)
	return ph, nil
}

// removePhotoFile deletes the stored file of a photo. A missing file is
// not an error.
func removePhotoFile(ctx context.Context, bucket storage.Bucket, ph *models.ProductPhoto) {
	if bucket == nil {
		return
	}
	key := storage.ProductPhotoKey(ph.ProductID, ph.FileName)
	if err := bucket.Delete(ctx, key); err != nil {
		slog.Warn("delete photo file failed", "key", key, "error", err)
	}
}

// PhotosUpload adds the uploaded files to a product's photos.
func (a *Admin) PhotosUpload(w http.ResponseWriter, r *http.Request) {
	p := a.loadProduct(w, r, "id")
	if p == nil {
		return
	}
	back := "/admin/products/" + strconv.FormatInt(p.ID, 10)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadRequest)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		render.SetFlash(w, r, "error", "Upload is too large.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		render.SetFlash(w, r, "error", "Choose at least one photo.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	ctx := r.Context()
	saved, errs := savePhotos(ctx, a.bucket, a.stores.Photos, p.ID, files)
	if len(saved) > 0 {
		slog.Info("product photos uploaded", "product_id", p.ID, "count", len(saved))
		a.invalidateKind(ctx, cache.KindProduct)
	}
	msg := strconv.Itoa(len(saved)) + " photo(s) uploaded."
	if len(errs) > 0 {
		render.SetFlash(w, r, "error", msg+" "+strings.Join(errs, " "))
	} else {
		render.SetFlash(w, r, "success", msg)
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// PhotoDelete removes one photo of a product.
func (a *Admin) PhotoDelete(w http.ResponseWriter, r *http.Request) {
	p := a.loadProduct(w, r, "id")
	if p == nil {
		return
	}
	photoID, ok := int64Param(r, "photoID")
	if !ok {
		a.renderer.Error(w, r, http.StatusNotFound)
		return
	}
	ctx := r.Context()
	ph, err := a.stores.Photos.FindByID(ctx, photoID)
	if err != nil {
		slog.Error("find photo failed", "id", photoID, "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if ph == nil || ph.ProductID != p.ID {
		a.renderer.Error(w, r, http.StatusNotFound)
		return
	}

	if err := a.stores.Photos.Delete(ctx, ph.ID); err != nil {
		slog.Error("delete photo failed", "id", ph.ID, "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	removePhotoFile(ctx, a.bucket, ph)
	a.invalidateKind(ctx, cache.KindProduct)

	render.SetFlash(w, r, "success", "Photo deleted.")
	http.Redirect(w, r, "/admin/products/"+strconv.FormatInt(p.ID, 10), http.StatusSeeOther)
}
