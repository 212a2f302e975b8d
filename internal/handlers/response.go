package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/checkout"
)

// envelope is the uniform response body: {success, message, data}.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func respondCreated(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, envelope{Success: true, Message: message, Data: data})
}

func respondError(c *gin.Context, status int, route, message string) {
	log.Printf("[%s] returning error %d: %s", route, status, message)
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: message, Data: nil})
}

// respondCheckoutError maps the checkout error taxonomy onto HTTP statuses:
// business-rule failures are 400, missing orders 404, storage failures 500
// with the cause logged but never echoed to the caller.
func respondCheckoutError(c *gin.Context, route string, err error) {
	var persistence *checkout.PersistenceError
	if errors.As(err, &persistence) {
		log.Printf("[%s] [ERROR] %s: %v", route, persistence.Op, persistence.Unwrap())
		respondError(c, http.StatusInternalServerError, route, "something went wrong")
		return
	}

	if errors.Is(err, checkout.ErrOrderNotFound) {
		respondError(c, http.StatusNotFound, route, err.Error())
		return
	}

	if checkout.IsBusinessError(err) {
		respondError(c, http.StatusBadRequest, route, err.Error())
		return
	}

	log.Printf("[%s] [ERROR] unexpected: %v", route, err)
	respondError(c, http.StatusInternalServerError, route, "something went wrong")
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, envelope{
			Success: false,
			Message: "validation failed: " + strings.Join(details, ", "),
			Data:    nil,
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, envelope{Success: false, Message: "invalid body", Data: nil})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, envelope{Success: false, Message: "internal server error", Data: nil})
	}
}

// currentUserID pulls the authenticated user's id set by the auth
// middleware.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	value, ok := c.Get("userId")
	if !ok {
		return primitive.NilObjectID, false
	}
	userID, ok := value.(primitive.ObjectID)
	return userID, ok
}
