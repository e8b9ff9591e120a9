package ledgerd

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/sequence-sdk-go/internal/chain"
	"github.com/jmerrifield20/sequence-sdk-go/pkg/sequence"
)

// chainHandler exposes the audit chain read-only.
type chainHandler struct {
	ledger chain.Ledger
	logger *zap.Logger
}

func (h *chainHandler) register(rg gin.IRoutes) {
	rg.GET("/chain", h.overview)
	rg.GET("/chain/verify", h.verify)
	rg.GET("/chain/entries/:idx", h.entry)
}

// overview handles GET /chain: the entry count and current root hash.
func (h *chainHandler) overview(c *gin.Context) {
	ctx := c.Request.Context()

	count, err := h.ledger.Len(ctx)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	root, err := h.ledger.Root(ctx)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": count, "root": root})
}

// verify handles GET /chain/verify. A broken chain is reported, not failed.
func (h *chainHandler) verify(c *gin.Context) {
	if err := h.ledger.Verify(c.Request.Context()); err != nil {
		h.logger.Warn("chain integrity check failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// entry handles GET /chain/entries/:idx.
func (h *chainHandler) entry(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 0 {
		writeError(c, h.logger, errInvalidBody("idx must be a non-negative integer"))
		return
	}
	e, err := h.ledger.Get(c.Request.Context(), idx)
	if err != nil {
		writeError(c, h.logger, &Error{Status: http.StatusNotFound, Code: sequence.CodeNotFound,
			Message: "Not found", Detail: err.Error()})
		return
	}
	c.JSON(http.StatusOK, e)
}
