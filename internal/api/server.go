package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/samber/lo"

	"github.com/Danielfrancoi/matrices/internal/logger"
	"github.com/Danielfrancoi/matrices/internal/matmul"
	"github.com/Danielfrancoi/matrices/internal/matrix"
	"github.com/Danielfrancoi/matrices/internal/partition"
)

// DefaultMaxSize bounds n for a single request.
const DefaultMaxSize = 1024

// Config holds the server defaults. Request fields override Strategy,
// DType and Workers; Options is shared by every request.
type Config struct {
	Strategy string
	DType    string
	Workers  int
	MaxSize  int
	Options  matmul.Options
}

type Server struct {
	store *ResultStore
	cfg   Config
	clock func() time.Time
}

func NewServer(store *ResultStore, cfg Config) *Server {
	if store == nil {
		store = NewResultStore()
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Server{
		store: store,
		cfg:   cfg,
		clock: time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/v1/strategies", s.handleStrategies)
	e.POST("/v1/multiply", s.handleMultiply)
	e.GET("/v1/results/:id", s.handleGetResult)
	e.DELETE("/v1/results/:id", s.handleDeleteResult)
}

func (s *Server) handleStrategies(c *echo.Context) error {
	data := lo.Map(matmul.Names(), func(name string, _ int) StrategyInfo {
		return StrategyInfo{Name: name, Available: matmul.Has(name)}
	})
	return c.JSON(http.StatusOK, StrategyList{Object: "list", Data: data})
}

func (s *Server) handleMultiply(c *echo.Context) error {
	req, err := decodeJSON[MultiplyRequest](c.Request().Body)
	if err != nil {
		return writeFailure(c, err)
	}
	resp, err := s.multiply(c.Request().Context(), &req)
	if err != nil {
		return writeFailure(c, err)
	}
	return c.JSON(http.StatusOK, s.store.Create(resp))
}

func (s *Server) handleGetResult(c *echo.Context) error {
	id := c.Param("id")
	resp, ok := s.store.Get(id)
	if !ok {
		return writeNotFound(c, fmt.Sprintf("result %q not found", id))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDeleteResult(c *echo.Context) error {
	id := c.Param("id")
	if !s.store.Delete(id) {
		return writeNotFound(c, fmt.Sprintf("result %q not found", id))
	}
	return c.JSON(http.StatusOK, DeleteResultResp{
		ID:      id,
		Object:  "multiplication.deleted",
		Deleted: true,
	})
}

func (s *Server) multiply(ctx context.Context, req *MultiplyRequest) (MultiplyResponse, error) {
	name := req.Strategy
	if name == "" {
		name = s.cfg.Strategy
	}
	name, err := matmul.Normalize(name)
	if err != nil {
		return MultiplyResponse{}, err
	}
	dtypeName := req.DType
	if dtypeName == "" {
		dtypeName = s.cfg.DType
	}
	dtype, err := matrix.ParseDType(dtypeName)
	if err != nil {
		return MultiplyResponse{}, newInvalidRequest(err.Error())
	}
	switch dtype {
	case matrix.DTypeI32:
		return multiplyAs[int32](ctx, s, name, req)
	case matrix.DTypeI64:
		return multiplyAs[int64](ctx, s, name, req)
	case matrix.DTypeF32:
		return multiplyAs[float32](ctx, s, name, req)
	default:
		return multiplyAs[float64](ctx, s, name, req)
	}
}

func multiplyAs[T matrix.Element](ctx context.Context, s *Server, name string, req *MultiplyRequest) (MultiplyResponse, error) {
	a, b, err := operands[T](req, s.cfg.MaxSize)
	if err != nil {
		return MultiplyResponse{}, err
	}
	n := a.Dim()
	workers := req.Workers
	if workers == 0 {
		workers = partition.Clamp(s.cfg.Workers, n)
	}

	opts := s.cfg.Options
	if o := req.Options; o != nil {
		opts.Chunk = o.Chunk
		if o.Launcher != "" {
			opts.Launcher = o.Launcher
		}
	}
	strategy, err := matmul.New[T](name, opts)
	if err != nil {
		return MultiplyResponse{}, err
	}

	start := s.clock()
	prod, err := matmul.Multiply(ctx, a, b, strategy, workers)
	if err != nil {
		return MultiplyResponse{}, err
	}
	elapsed := s.clock().Sub(start)
	logger.FromContext(ctx).Info("multiplied", "strategy", name, "n", n, "workers", workers, "elapsed", elapsed)

	return MultiplyResponse{
		CreatedAt:      start.Unix(),
		Strategy:       name,
		DType:          matrix.DTypeOf[T]().String(),
		Workers:        workers,
		Size:           n,
		ElapsedSeconds: elapsed.Seconds(),
		C:              lo.Chunk(prod.Data(), n),
	}, nil
}
