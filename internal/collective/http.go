package collective

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/Danielfrancoi/matrices/internal/failure"
)

type exchangeRequest struct {
	Rank    int    `json:"rank"`
	Op      Op     `json:"op"`
	Root    int    `json:"root"`
	Payload []byte `json:"payload,omitempty"`
	Counts  []int  `json:"counts,omitempty"`
	Displs  []int  `json:"displs,omitempty"`
}

type exchangeResponse struct {
	Payload []byte `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

type groupInfo struct {
	Size int `json:"size"`
}

// Server exposes a Hub to ranks in other processes.
type Server struct {
	hub *Hub
}

func NewServer(hub *Hub) *Server {
	return &Server{hub: hub}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/v1/collective", s.handleInfo)
	e.POST("/v1/collective/:seq", s.handleExchange)
}

func (s *Server) handleInfo(c *echo.Context) error {
	return c.JSON(http.StatusOK, groupInfo{Size: s.hub.Size()})
}

func (s *Server) handleExchange(c *echo.Context) error {
	seq, err := strconv.ParseUint(c.Param("seq"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, exchangeResponse{Error: "bad sequence number " + strconv.Quote(c.Param("seq"))})
	}
	var req exchangeRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return c.JSON(http.StatusBadRequest, exchangeResponse{Error: err.Error()})
	}
	out, err := s.hub.Exchange(c.Request().Context(), seq, req.Rank, Contribution{
		Op:      req.Op,
		Root:    req.Root,
		Payload: req.Payload,
		Counts:  req.Counts,
		Displs:  req.Displs,
	})
	if err != nil {
		return c.JSON(http.StatusConflict, exchangeResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, exchangeResponse{Payload: out})
}

// remoteComm reaches a Server over HTTP.
type remoteComm struct {
	base   string
	rank   int
	size   int
	client *http.Client
	seq    uint64
}

// Dial connects rank to the group served at base and checks that the
// group has the expected size.
func Dial(ctx context.Context, base string, rank, size int) (Comm, error) {
	c := &remoteComm{
		base:   strings.TrimRight(base, "/"),
		rank:   rank,
		size:   size,
		client: &http.Client{},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/v1/collective", nil)
	if err != nil {
		return nil, failure.CollectiveFailure(err, "dial %s", base)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, failure.CollectiveFailure(err, "dial %s", base)
	}
	defer resp.Body.Close()
	var info groupInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, failure.CollectiveFailure(err, "dial %s", base)
	}
	if info.Size != size {
		return nil, failure.CollectiveFailure(nil, "group at %s has %d ranks, expected %d", base, info.Size, size)
	}
	if rank < 0 || rank >= size {
		return nil, failure.CollectiveFailure(nil, "rank %d outside group of %d", rank, size)
	}
	return c, nil
}

func (c *remoteComm) Rank() int { return c.rank }
func (c *remoteComm) Size() int { return c.size }

func (c *remoteComm) Exchange(ctx context.Context, con Contribution) ([]byte, error) {
	seq := c.seq
	c.seq++
	body, err := json.Marshal(exchangeRequest{
		Rank:    c.rank,
		Op:      con.Op,
		Root:    con.Root,
		Payload: con.Payload,
		Counts:  con.Counts,
		Displs:  con.Displs,
	})
	if err != nil {
		return nil, failure.CollectiveFailure(err, "encode %s", con.Op)
	}
	url := fmt.Sprintf("%s/v1/collective/%d", c.base, seq)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, failure.CollectiveFailure(err, "%s", con.Op)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, failure.CollectiveFailure(err, "%s", con.Op)
	}
	defer resp.Body.Close()
	var out exchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, failure.CollectiveFailure(err, "decode %s reply", con.Op)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, failure.CollectiveFailure(errors.New(out.Error), "%s rejected with status %d", con.Op, resp.StatusCode)
	}
	return out.Payload, nil
}
