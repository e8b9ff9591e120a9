package ledgerd

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/sequence-sdk-go/pkg/sequence"
)

// handle adapts a typed ledger operation to a gin handler. An empty body
// decodes to the zero request.
func handle[Req, Resp any](s *Server, op func(*gin.Context, Req) (Resp, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Req
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(c, s.logger, errInvalidBody("%v", err))
			return
		}
		resp, err := op(c, req)
		if err != nil {
			writeError(c, s.logger, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (s *Server) register(rg gin.IRoutes) {
	// ── keys ────────────────────────────────────────────────────────────────
	rg.POST("/create-key", handle(s, func(_ *gin.Context, p sequence.CreateKeyParams) (sequence.Key, error) {
		return s.store.createKey(p)
	}))
	rg.POST("/list-keys", handle(s, func(_ *gin.Context, req listRequest) (page[sequence.Key], error) {
		return list(s.store.listKeys(), req, nil)
	}))

	// ── accounts ────────────────────────────────────────────────────────────
	rg.POST("/create-account", handle(s, func(_ *gin.Context, p sequence.CreateAccountParams) (sequence.Account, error) {
		return s.store.createAccount(p)
	}))
	rg.POST("/update-account-tags", handle(s, func(_ *gin.Context, p sequence.UpdateTagsParams) (struct{}, error) {
		return struct{}{}, s.store.updateAccountTags(p)
	}))
	rg.POST("/list-accounts", handle(s, func(_ *gin.Context, req listRequest) (page[sequence.Account], error) {
		return list(s.store.listAccounts(), req, nil)
	}))

	// ── flavors ─────────────────────────────────────────────────────────────
	rg.POST("/create-flavor", handle(s, func(_ *gin.Context, p sequence.CreateFlavorParams) (sequence.Flavor, error) {
		return s.store.createFlavor(p)
	}))
	rg.POST("/update-flavor-tags", handle(s, func(_ *gin.Context, p sequence.UpdateTagsParams) (struct{}, error) {
		return struct{}{}, s.store.updateFlavorTags(p)
	}))
	rg.POST("/list-flavors", handle(s, func(_ *gin.Context, req listRequest) (page[sequence.Flavor], error) {
		return list(s.store.listFlavors(), req, nil)
	}))

	// ── actions & tokens ────────────────────────────────────────────────────
	rg.POST("/list-actions", handle(s, func(_ *gin.Context, req listRequest) (page[sequence.ActionRecord], error) {
		return list(s.store.listActions(), req, func(a sequence.ActionRecord) time.Time { return a.Timestamp })
	}))
	rg.POST("/sum-actions", handle(s, func(_ *gin.Context, req listRequest) (page[sequence.ActionSum], error) {
		return sumActions(s.store.listActions(), req)
	}))
	rg.POST("/list-tokens", handle(s, func(_ *gin.Context, req listRequest) (page[sequence.Token], error) {
		return list(s.store.listTokens(), req, nil)
	}))
	rg.POST("/sum-tokens", handle(s, func(_ *gin.Context, req listRequest) (page[sequence.TokenSum], error) {
		return sumTokens(s.store.listTokens(), req)
	}))

	// ── transactions ────────────────────────────────────────────────────────
	rg.POST("/list-transactions", handle(s, func(_ *gin.Context, req listRequest) (page[sequence.Transaction], error) {
		return list(s.store.listTransactions(), req, func(tx sequence.Transaction) time.Time { return tx.Timestamp })
	}))
	rg.POST("/build-transaction", handle(s, func(_ *gin.Context, req buildRequest) (*Template, error) {
		return s.store.build(req)
	}))
	rg.POST("/sign-transaction", handle(s, func(_ *gin.Context, req templateRequest) (*Template, error) {
		return s.store.sign(req.Transaction)
	}))
	rg.POST("/submit-transaction", handle(s, s.submit))

	// ── dev ─────────────────────────────────────────────────────────────────
	rg.POST("/reset", handle(s, func(c *gin.Context, _ struct{}) (struct{}, error) {
		if err := s.store.reset(c.Request.Context()); err != nil {
			return struct{}{}, err
		}
		s.logger.Info("ledger reset")
		return struct{}{}, nil
	}))
}

func (s *Server) submit(c *gin.Context, req templateRequest) (*sequence.Transaction, error) {
	tx, err := s.store.submit(c.Request.Context(), req.Transaction)

	var types []string
	if tx != nil {
		for _, a := range tx.Actions {
			types = append(types, string(a.Type))
		}
		s.logger.Info("transaction committed",
			zap.String("id", tx.ID),
			zap.Int64("sequence_number", tx.SequenceNumber),
			zap.Int("actions", len(tx.Actions)),
		)
	}
	recordSubmit(types, err)
	return tx, err
}
