package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/prono/internal/auth"
)

type TokenPairInput struct {
	Body struct {
		Username string `json:"username" minLength:"1" maxLength:"150" doc:"Username"`
		Password string `json:"password" minLength:"1" maxLength:"128" doc:"Password"` //nolint:gosec // G117: login credential DTO
	}
}

type TokenPairOutput struct {
	Body struct {
		Access  string `json:"access"`  //nolint:gosec // G117: auth response DTO
		Refresh string `json:"refresh"` //nolint:gosec // G117: auth response DTO
	}
}

type TokenRefreshInput struct {
	Body struct {
		Refresh string `json:"refresh" minLength:"1" doc:"Refresh token"` //nolint:gosec // G117: token refresh DTO
	}
}

type TokenRefreshOutput struct {
	Body struct {
		Access string `json:"access"` //nolint:gosec // G117: auth response DTO
	}
}

// RegisterAuthRoutes registers the token endpoints. They are mounted outside
// the bearer-auth group.
func RegisterAuthRoutes(api huma.API, authSvc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID: "token-pair",
		Method:      http.MethodPost,
		Path:        "/token/pair",
		Summary:     "Obtain an access and refresh token",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *TokenPairInput) (*TokenPairOutput, error) {
		pair, err := authSvc.Login(ctx, input.Body.Username, input.Body.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				return nil, huma.Error401Unauthorized("invalid username or password")
			}
			return nil, huma.Error500InternalServerError("login failed", err)
		}

		out := &TokenPairOutput{}
		out.Body.Access = pair.Access
		out.Body.Refresh = pair.Refresh
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "token-refresh",
		Method:      http.MethodPost,
		Path:        "/token/refresh",
		Summary:     "Exchange a refresh token for a new access token",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *TokenRefreshInput) (*TokenRefreshOutput, error) {
		access, err := authSvc.RefreshToken(ctx, input.Body.Refresh)
		if err != nil {
			return nil, huma.Error401Unauthorized("invalid or expired refresh token")
		}

		out := &TokenRefreshOutput{}
		out.Body.Access = access
		return out, nil
	})
}
