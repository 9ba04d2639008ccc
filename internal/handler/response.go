package handler

import (
	"github.com/labstack/echo/v4"

	"storefront/internal/pagination"
)

const statusSuccess = "success"

// Response is the envelope of every successful reply.
type Response struct {
	Status  string      `json:"status" example:"success"`
	Message string      `json:"message" example:"Success"`
	Data    interface{} `json:"data"`
}

// ListResponse is a Response carrying pagination metadata.
type ListResponse struct {
	Status  string          `json:"status" example:"success"`
	Message string          `json:"message" example:"Success"`
	Data    interface{}     `json:"data"`
	Meta    pagination.Meta `json:"meta"`
}

func success(c echo.Context, code int, message string, data interface{}) error {
	if message == "" {
		message = "Success"
	}
	return c.JSON(code, Response{Status: statusSuccess, Message: message, Data: data})
}
