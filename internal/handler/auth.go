package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// 令牌由外部的认证服务签发，这里只负责校验并取出当前操作者
type AuthClaims struct {
	jwt.RegisteredClaims
}

var errMissingToken = errors.New("用户未登录")

// tokenFromRequest 优先读取 cookie，其次读取 Authorization: Bearer
func (h *Handler) tokenFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(h.config.JWT.CookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		return token, nil
	}

	return "", errMissingToken
}

func (h *Handler) parseActor(tokenString string) (int64, error) {
	claims := &AuthClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(h.config.JWT.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, err
	}

	return strconv.ParseInt(claims.Subject, 10, 64)
}

func actorFromRequest(r *http.Request) int64 {
	actor, _ := r.Context().Value(ActorCtxKey).(int64)
	return actor
}
