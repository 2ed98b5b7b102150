package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/store"
)

const identityKey = "identity"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingUser  = errors.New("missing user id in claims")
)

// Identity is the caller a request was authenticated as.
type Identity struct {
	UserID   string `json:"uid"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Admin    bool   `json:"admin"`
	Provider string `json:"provider"`
}

// TokenVerifier turns a bearer token into an Identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Claims are the HS256 user token claims. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// JWTVerifier checks HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Sign issues a token for uid; used by tooling and tests.
func (v *JWTVerifier) Sign(uid, email, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
		Name:  name,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func (v *JWTVerifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrMissingUser
	}
	return &Identity{UserID: claims.Subject, Email: claims.Email, Name: claims.Name, Provider: "jwt"}, nil
}

// FirebaseVerifier checks Firebase ID tokens.
type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(ctx context.Context, app *firebase.App) (*FirebaseVerifier, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	token, err := v.client.VerifyIDToken(ctx, tokenString)
	if err != nil {
		if auth.IsIDTokenExpired(err) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	id := &Identity{UserID: token.UID, Provider: "firebase"}
	id.Email, _ = token.Claims["email"].(string)
	id.Name, _ = token.Claims["name"].(string)
	return id, nil
}

// Verifiers tries each verifier in order and returns the first identity.
type Verifiers []TokenVerifier

func (vs Verifiers) Verify(ctx context.Context, token string) (*Identity, error) {
	err := ErrInvalidToken
	for _, v := range vs {
		id, verr := v.Verify(ctx, token)
		if verr == nil {
			return id, nil
		}
		if errors.Is(verr, ErrExpiredToken) {
			err = verr
		}
	}
	return nil, err
}

// Auth gates user and admin routes.
type Auth struct {
	adminKey string
	verifier TokenVerifier
	store    store.DocumentStore
}

// NewAuth builds the gate. verifier may be nil when no user auth is
// configured; store is used to look up users/{uid}.isAdmin.
func NewAuth(adminKey string, verifier TokenVerifier, st store.DocumentStore) *Auth {
	return &Auth{adminKey: adminKey, verifier: verifier, store: st}
}

// Modes reports which credentials are accepted.
func (a *Auth) Modes() map[string]bool {
	return map[string]bool{
		"adminKey":   a.adminKey != "",
		"userTokens": a.verifier != nil,
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if header == "" || token == header || token == "" {
		return "", false
	}
	return token, true
}

func (a *Auth) isAdminKey(token string) bool {
	return a.adminKey != "" && subtle.ConstantTimeCompare([]byte(token), []byte(a.adminKey)) == 1
}

func (a *Auth) verify(c *gin.Context, token string) (*Identity, bool) {
	if a.verifier == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user authentication is not configured"})
		return nil, false
	}
	id, err := a.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return nil, false
	}
	return id, true
}

// RequireUser accepts a verified user token.
func (a *Auth) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed Authorization header"})
			return
		}
		id, ok := a.verify(c, token)
		if !ok {
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireAdmin accepts the admin key, or a user whose users/{uid} document
// has isAdmin set.
func (a *Auth) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed Authorization header"})
			return
		}
		if a.isAdminKey(token) {
			c.Set(identityKey, &Identity{UserID: "admin", Admin: true, Provider: "admin-key"})
			c.Next()
			return
		}

		id, ok := a.verify(c, token)
		if !ok {
			return
		}
		admin, err := a.isAdminUser(c.Request.Context(), id.UserID)
		if err != nil {
			log.Printf("Auth: admin lookup for %s failed: %v", id.UserID, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to check admin access"})
			return
		}
		if !admin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		id.Admin = true
		c.Set(identityKey, id)
		c.Next()
	}
}

func (a *Auth) isAdminUser(ctx context.Context, uid string) (bool, error) {
	if a.store == nil {
		return false, nil
	}
	doc, err := a.store.Get(ctx, models.CollectionUsers, uid)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var user models.User
	if err := doc.DataTo(&user); err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

// CurrentIdentity returns the identity set by RequireUser or RequireAdmin.
func CurrentIdentity(c *gin.Context) *Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(*Identity); ok {
			return id
		}
	}
	return nil
}
