package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/orionintegra/orion-backend/api/responses"
	"github.com/orionintegra/orion-backend/api/validators"
	"github.com/orionintegra/orion-backend/internal/images"
	product "github.com/orionintegra/orion-backend/internal/products"
	pkgerrors "github.com/orionintegra/orion-backend/pkg/errors"
	"github.com/orionintegra/orion-backend/pkg/logger"
)

// multipartOverhead covers boundary markers and form fields beyond the file
// payload itself.
const multipartOverhead = 1 << 20

type uploadResponse struct {
	Image  product.ImageDTO `json:"image"`
	Status string           `json:"status"`
}

func UploadProductImage(svc images.Service, logg *logger.Logger, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.UUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+multipartOverhead)

		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file field is required"))
			return
		}
		defer func() { _ = file.Close() }()

		sortOrder := 0
		if raw := strings.TrimSpace(r.FormValue("sort_order")); raw != "" {
			sortOrder, err = strconv.Atoi(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "sort_order must be an integer"))
				return
			}
		}

		result, err := svc.Upload(r.Context(), productID, images.UploadInput{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			SizeBytes:   header.Size,
			Body:        file,
			Alt:         r.FormValue("alt"),
			SortOrder:   sortOrder,
			MakePrimary: r.FormValue("is_primary") == "true",
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, uploadResponse{
			Image:  product.NewImageDTO(result.Image),
			Status: string(result.Status),
		})
	}
}

func ListProductImages(svc images.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.UUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.List(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dtos := make([]product.ImageDTO, 0, len(rows))
		for i := range rows {
			dtos = append(dtos, product.NewImageDTO(&rows[i]))
		}
		responses.WriteSuccess(w, map[string]any{"images": dtos})
	}
}

func DeleteProductImage(svc images.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := validators.UUIDParam(r, "productID"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		imageID, err := validators.UUIDParam(r, "imageID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), imageID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

const (
	imageActionSetPrimary  = "setPrimary"
	imageActionUpdateOrder = "updateOrder"
)

type imagePatchRequest struct {
	Action   string      `json:"action" validate:"required,oneof=setPrimary updateOrder"`
	ImageID  *uuid.UUID  `json:"image_id,omitempty"`
	ImageIDs []uuid.UUID `json:"image_ids,omitempty"`
}

func PatchProductImages(svc images.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.UUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input imagePatchRequest
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		switch input.Action {
		case imageActionSetPrimary:
			if input.ImageID == nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "image_id is required for setPrimary"))
				return
			}
			err = svc.SetPrimary(r.Context(), productID, *input.ImageID)
		case imageActionUpdateOrder:
			if len(input.ImageIDs) == 0 {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "image_ids is required for updateOrder"))
				return
			}
			err = svc.UpdateSortOrder(r.Context(), productID, input.ImageIDs)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
