package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"clinic-backoffice/config"
	"clinic-backoffice/internal/delivery/dto"
	"clinic-backoffice/pkg/jwt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type AuthUsecase interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	Logout(ctx context.Context, username, tokenID string) error
}

type authUsecase struct {
	log         *logrus.Logger
	cfg         config.AuthConfig
	jwtService  *jwt.JWTService
	redisClient *redis.Client
}

func NewAuthUsecase(log *logrus.Logger, cfg config.AuthConfig, jwtService *jwt.JWTService, redisClient *redis.Client) AuthUsecase {
	return &authUsecase{
		log:         log,
		cfg:         cfg,
		jwtService:  jwtService,
		redisClient: redisClient,
	}
}

// Login checks the configured back-office credential and issues an access
// token whose id is tracked in Redis so it can be revoked.
func (u *authUsecase) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(u.cfg.AdminUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(u.cfg.AdminPassword)) == 1
	if !userOK || !passOK {
		return nil, ErrInvalidCredentials
	}

	token, tokenID, err := u.jwtService.GenerateAccessToken(req.Username)
	if err != nil {
		u.log.Errorf("Failed to sign access token: %+v", err)
		return nil, err
	}

	tokenKey := accessTokenKey(req.Username, tokenID)
	if err := u.redisClient.Set(ctx, tokenKey, "1", u.jwtService.GetAccessExpiry()).Err(); err != nil {
		u.log.Errorf("Failed to track access token in Redis: %+v", err)
		return nil, err
	}

	u.log.Infof("Back-office login: user=%s", req.Username)
	return &dto.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(u.jwtService.GetAccessExpiry().Seconds()),
	}, nil
}

func (u *authUsecase) Logout(ctx context.Context, username, tokenID string) error {
	if err := u.redisClient.Del(ctx, accessTokenKey(username, tokenID)).Err(); err != nil {
		u.log.Warnf("Failed to revoke token for %s: %+v", username, err)
		return err
	}
	return nil
}

func accessTokenKey(username, tokenID string) string {
	return fmt.Sprintf("access_token:%s:%s", username, tokenID)
}
