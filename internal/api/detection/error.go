package detection

import (
	"net/http"
	"trashiq/pkg/response"
)

var (
	ErrModelNotLoaded     = response.NewError(http.StatusInternalServerError, "Model not loaded. Please check server logs.")
	ErrNoImageData        = response.NewError(http.StatusBadRequest, "No image data provided")
	ErrInvalidRequestBody = response.NewError(http.StatusBadRequest, "Invalid request body")
	ErrInvalidImage       = response.NewError(http.StatusBadRequest, "Invalid image data")
	ErrInference          = response.NewError(http.StatusInternalServerError, "Inference failed")
)
