package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/models"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type authTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`

	refreshTokenID primitive.ObjectID
}

type authUser struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

func Register(db *mongo.Database, jwtSecret string, accessTTL, refreshTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/register"
		defer handlePanic(c, route)

		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Println("[AUTH] [ERROR] password hash failed:", err)
			respondError(c, http.StatusInternalServerError, route, "something went wrong")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		now := time.Now().UTC()
		user := models.User{
			Email:        email,
			PasswordHash: string(hash),
			Name:         strings.TrimSpace(req.Name),
			Phone:        strings.TrimSpace(req.Phone),
			Role:         models.RoleUser,
			IsActive:     true,
			Addresses:    []models.Address{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		res, err := db.Collection("users").InsertOne(ctx, user)
		if mongo.IsDuplicateKeyError(err) {
			respondError(c, http.StatusBadRequest, route, "email already registered")
			return
		}
		if err != nil {
			log.Println("[AUTH] [ERROR] register insert failed:", err)
			respondError(c, http.StatusInternalServerError, route, "something went wrong")
			return
		}
		user.ID = res.InsertedID.(primitive.ObjectID)

		tokens, err := issueTokens(ctx, db, user, jwtSecret, accessTTL, refreshTTL)
		if err != nil {
			log.Println("[AUTH] [ERROR] register token generation failed:", err)
			respondError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		log.Println("[AUTH] [INFO] user registered:", user.Email)
		respondCreated(c, "registered", gin.H{
			"tokens": tokens,
			"user":   authUser{ID: user.ID.Hex(), Name: user.Name, Email: user.Email, Role: user.Role},
		})
	}
}

func Login(db *mongo.Database, jwtSecret string, accessTTL, refreshTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/login"
		defer handlePanic(c, route)

		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		err := db.Collection("users").FindOne(ctx, bson.M{"email": email}).Decode(&user)
		if err == mongo.ErrNoDocuments {
			respondError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}
		if err != nil {
			log.Println("[AUTH] [ERROR] login user lookup failed:", err)
			respondError(c, http.StatusInternalServerError, route, "something went wrong")
			return
		}

		if !user.IsActive {
			log.Println("[AUTH] [ERROR] user inactive:", email)
			respondError(c, http.StatusForbidden, route, "account is inactive")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			log.Println("[AUTH] [ERROR] login invalid credentials for:", email)
			respondError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}

		tokens, err := issueTokens(ctx, db, user, jwtSecret, accessTTL, refreshTTL)
		if err != nil {
			log.Println("[AUTH] [ERROR] login token generation failed:", err)
			respondError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		log.Println("[AUTH] [INFO] login succeeded:", user.Email)
		respondOK(c, "logged in", gin.H{
			"tokens": tokens,
			"user":   authUser{ID: user.ID.Hex(), Name: user.Name, Email: user.Email, Role: user.Role},
		})
	}
}

func Refresh(db *mongo.Database, jwtSecret string, accessTTL, refreshTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/refresh"
		defer handlePanic(c, route)

		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		tokenHash := hashRefreshToken(req.RefreshToken)

		var stored models.RefreshToken
		err := db.Collection("refreshTokens").FindOne(ctx, bson.M{"tokenHash": tokenHash}).Decode(&stored)
		if err != nil || stored.Revoked || stored.ExpiresAt.Before(time.Now()) {
			respondError(c, http.StatusUnauthorized, route, "invalid refresh token")
			return
		}

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": stored.UserID}).Decode(&user); err != nil {
			respondError(c, http.StatusUnauthorized, route, "invalid refresh token")
			return
		}
		if !user.IsActive {
			respondError(c, http.StatusForbidden, route, "account is inactive")
			return
		}

		tokens, err := issueTokens(ctx, db, user, jwtSecret, accessTTL, refreshTTL)
		if err != nil {
			log.Println("[AUTH] [ERROR] refresh token generation failed:", err)
			respondError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		// rotate: the old token is single use
		_, _ = db.Collection("refreshTokens").UpdateByID(ctx, stored.ID, bson.M{
			"$set": bson.M{"revoked": true, "replacedByToken": tokens.refreshTokenID},
		})

		respondOK(c, "token refreshed", gin.H{"tokens": tokens})
	}
}

func Logout(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/logout"
		defer handlePanic(c, route)

		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		_, err := db.Collection("refreshTokens").UpdateOne(ctx,
			bson.M{"tokenHash": hashRefreshToken(req.RefreshToken)},
			bson.M{"$set": bson.M{"revoked": true}},
		)
		if err != nil {
			log.Println("[AUTH] [ERROR] logout failed:", err)
			respondError(c, http.StatusInternalServerError, route, "something went wrong")
			return
		}

		respondOK(c, "logged out", nil)
	}
}

func GetMe(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /auth/me"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			respondError(c, http.StatusNotFound, route, "user not found")
			return
		}

		respondOK(c, "ok", user)
	}
}

func issueTokens(ctx context.Context, db *mongo.Database, user models.User, jwtSecret string, accessTTL, refreshTTL time.Duration) (*authTokens, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"userId": user.ID.Hex(),
		"role":   string(user.Role),
		"iat":    now.Unix(),
		"exp":    now.Add(accessTTL).Unix(),
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	if err != nil {
		return nil, err
	}

	plain := uuid.NewString() + uuid.NewString()
	stored := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashRefreshToken(plain),
		ExpiresAt: now.Add(refreshTTL),
		CreatedAt: now,
	}
	res, err := db.Collection("refreshTokens").InsertOne(ctx, stored)
	if err != nil {
		return nil, err
	}

	tokens := &authTokens{
		AccessToken:  accessToken,
		RefreshToken: plain,
		ExpiresIn:    int64(accessTTL.Seconds()),
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		tokens.refreshTokenID = id
	}
	return tokens, nil
}

func hashRefreshToken(plain string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(plain)))
	return hex.EncodeToString(sum[:])
}
