package restexecutor

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/criyle/go-runner/cmd/go-runner/model"
	"github.com/criyle/go-runner/worker"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// requestIDHeader is echoed as the worker request id when present
const requestIDHeader = "X-Request-Id"

type compileHandle struct {
	worker worker.Worker
	logger *zap.Logger
	nextID atomic.Uint64
}

// NewCompileHandle creates a new compile handle
func NewCompileHandle(worker worker.Worker, logger *zap.Logger) Register {
	return &compileHandle{
		worker: worker,
		logger: logger,
	}
}

func (c *compileHandle) Register(r *gin.Engine) {
	r.POST("/api/compile", c.handleCompile)
}

func (c *compileHandle) handleCompile(ctx *gin.Context) {
	var req model.Request
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		ctx.Error(err)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			ctx.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{Error: err.Error()})
			return
		}
		ctx.AbortWithStatusJSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	r, err := model.ConvertRequest(&req, c.requestID(ctx))
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}
	c.logger.Sugar().Debugf("request: %+v", r.RequestID)
	rt := <-c.worker.Submit(ctx.Request.Context(), r)
	c.logger.Sugar().Debugf("response: %v", rt)

	ctx.JSON(http.StatusOK, model.ConvertResponse(rt))
}

func (c *compileHandle) requestID(ctx *gin.Context) string {
	if id := ctx.GetHeader(requestIDHeader); id != "" {
		return id
	}
	return strconv.FormatUint(c.nextID.Add(1), 10)
}

// BodyLimit rejects request bodies larger than limit bytes
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{
				Error: "request body too large",
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
