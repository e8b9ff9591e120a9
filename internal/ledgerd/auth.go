package ledgerd

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jmerrifield20/sequence-sdk-go/pkg/sequence"
)

// credentialAuth requires "Authorization: Bearer <credential>" where the
// credential matches the configured bcrypt hash. Accepted credentials are
// remembered so bcrypt runs once per distinct credential.
func credentialAuth(hash []byte, logger *zap.Logger) gin.HandlerFunc {
	var accepted sync.Map

	return func(c *gin.Context) {
		cred, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if ok && cred != "" {
			if _, hit := accepted.Load(cred); hit {
				c.Next()
				return
			}
			if bcrypt.CompareHashAndPassword(hash, []byte(cred)) == nil {
				accepted.Store(cred, struct{}{})
				c.Next()
				return
			}
		}
		writeError(c, logger, &Error{
			Status:  http.StatusUnauthorized,
			Code:    sequence.CodeUnauthorized,
			Message: "Unauthorized",
			Detail:  "missing or invalid ledger credential",
		})
	}
}
