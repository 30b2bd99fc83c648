package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/liveon/internal/common"
	"github.com/dmitrijs2005/liveon/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// ProfileClaims carries the cached user profile; the user id is the subject.
type ProfileClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
}

func GenerateProfileToken(p models.UserProfile, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, ProfileClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Name: p.Name,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func ProfileFromToken(tokenString string, secretKey []byte) (*models.UserProfile, error) {
	claims := &ProfileClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return &models.UserProfile{ID: claims.Subject, Name: claims.Name}, nil
}
