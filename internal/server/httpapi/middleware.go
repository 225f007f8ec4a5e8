package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Vraj260105/Block-Vote/internal/common"
	"github.com/Vraj260105/Block-Vote/internal/server/auth"
)

const accountIDKey = "account_id"

// requireSession validates the bearer token and stashes the account id for
// the handler.
func (s *Server) requireSession(ctx *fiber.Ctx) error {
	header := ctx.Get(common.AccessTokenHeaderName)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return errorResponse(ctx, common.ErrorUnauthorized)
	}

	accountID, err := auth.GetAccountIDFromToken(token, s.jwtSecret)
	if err != nil {
		return errorResponse(ctx, common.ErrorUnauthorized)
	}

	ctx.Locals(accountIDKey, accountID)
	return ctx.Next()
}

func sessionAccountID(ctx *fiber.Ctx) string {
	id, _ := ctx.Locals(accountIDKey).(string)
	return id
}
