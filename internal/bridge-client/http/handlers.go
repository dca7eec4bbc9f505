package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/catalog"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/transfer"
)

type Deps struct {
	Catalog   *catalog.Catalog
	Wallet    Wallet
	Locker    Locker
	Transfers Transfers
	Balances  BalanceLoader
	Cache     BalanceCache
	Tasks     Tasks
	Metrics   http.Handler

	// OperationTimeout bounds a deposit, withdraw or bridge call. The call
	// keeps running when the HTTP client goes away.
	OperationTimeout time.Duration
	AllowedOrigins   []string
}

type Handler struct {
	deps Deps
}

func NewHandler(deps Deps) *Handler {
	if deps.OperationTimeout <= 0 {
		deps.OperationTimeout = 5 * time.Minute
	}
	return &Handler{deps: deps}
}

func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /api/networks
func (h *Handler) Networks(c *gin.Context) {
	c.JSON(http.StatusOK, networksRes{
		WrappedSymbol: h.deps.Catalog.WrappedSymbol(),
		Networks:      h.deps.Catalog.All(),
	})
}

// GET /api/wallet
func (h *Handler) WalletState(c *gin.Context) {
	c.JSON(http.StatusOK, h.walletRes())
}

func (h *Handler) walletRes() walletRes {
	return walletRes{WalletState: h.deps.Wallet.State(), Busy: h.deps.Transfers.Busy()}
}

// POST /api/wallet/connect
func (h *Handler) Connect(c *gin.Context) {
	if err := h.deps.Wallet.Connect(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.walletRes())
}

// POST /api/wallet/disconnect
func (h *Handler) Disconnect(c *gin.Context) {
	h.deps.Wallet.Disconnect()
	c.JSON(http.StatusOK, h.walletRes())
}

// POST /api/wallet/lock
func (h *Handler) Lock(c *gin.Context) {
	h.deps.Locker.Lock()
	c.JSON(http.StatusOK, h.walletRes())
}

// POST /api/wallet/unlock
func (h *Handler) Unlock(c *gin.Context) {
	h.deps.Locker.Unlock()
	c.JSON(http.StatusOK, h.walletRes())
}

// POST /api/wallet/switch
func (h *Handler) SwitchNetwork(c *gin.Context) {
	var req switchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if _, ok := h.deps.Catalog.ByID(req.ChainID); !ok {
		writeError(c, unsupported(req.ChainID))
		return
	}
	if err := h.deps.Wallet.SwitchNetwork(c.Request.Context(), req.ChainID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.walletRes())
}

// GET /api/balances/:chainId
func (h *Handler) Balances(c *gin.Context) {
	chain, err := catalog.ParseChainID(c.Param("chainId"))
	if err != nil {
		badRequest(c, err)
		return
	}
	if _, ok := h.deps.Catalog.ByID(chain); !ok {
		writeError(c, unsupported(chain))
		return
	}

	st := h.deps.Wallet.State()
	if !st.Connected {
		writeError(c, shared.ErrNotConnected)
		return
	}

	b, err := h.deps.Balances.LoadBalances(c.Request.Context(), common.HexToAddress(st.Address), chain)
	if err != nil {
		writeError(c, err)
		return
	}
	if h.deps.Cache != nil {
		h.deps.Cache.Put(b)
	}
	c.JSON(http.StatusOK, b)
}

// GET /api/selection
func (h *Handler) Selection(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Transfers.Selection())
}

// PUT /api/selection applies source, then target, then recipient.
func (h *Handler) UpdateSelection(c *gin.Context) {
	var req selectionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sel := h.deps.Transfers.Selection()
	var err error
	if req.Source != nil {
		if sel, err = h.deps.Transfers.SetSource(*req.Source); err != nil {
			writeError(c, err)
			return
		}
	}
	if req.Target != nil {
		if sel, err = h.deps.Transfers.SetTarget(*req.Target); err != nil {
			writeError(c, err)
			return
		}
	}
	if req.Recipient != nil {
		if sel, err = h.deps.Transfers.SetRecipient(*req.Recipient); err != nil {
			writeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, sel)
}

// POST /api/deposit
func (h *Handler) Deposit(c *gin.Context) {
	var req transfer.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.runOperation(c, func(ctx context.Context) (transfer.Result, error) {
		return h.deps.Transfers.Deposit(ctx, req)
	})
}

// POST /api/withdraw
func (h *Handler) Withdraw(c *gin.Context) {
	var req transfer.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.runOperation(c, func(ctx context.Context) (transfer.Result, error) {
		return h.deps.Transfers.Withdraw(ctx, req)
	})
}

// POST /api/bridge answers 202 once the coordinator has the task.
func (h *Handler) Bridge(c *gin.Context) {
	var req transfer.BridgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.runOperation(c, func(ctx context.Context) (transfer.Result, error) {
		return h.deps.Transfers.Bridge(ctx, req)
	})
}

func (h *Handler) runOperation(c *gin.Context, op func(ctx context.Context) (transfer.Result, error)) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.deps.OperationTimeout)
	defer cancel()

	res, err := op(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	code := http.StatusOK
	if res.Task != nil {
		code = http.StatusAccepted
	}
	c.JSON(code, res)
}

// GET /api/status
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, statusRes{Snapshot: h.deps.Transfers.Board().Get(), Busy: h.deps.Transfers.Busy()})
}

// GET /api/tasks
func (h *Handler) ListTasks(c *gin.Context) {
	tasks, err := h.deps.Tasks.ListTasks(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GET /api/tasks/:id
func (h *Handler) GetTask(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		badRequest(c, errors.New("task id is required"))
		return
	}
	if t, ok := h.deps.Transfers.Task(); ok && t.ID == id && t.Status.Terminal() {
		c.JSON(http.StatusOK, shared.TaskUpdate{TaskID: t.ID, Status: t.Status, Result: t.Result, Error: t.Error})
		return
	}
	u, err := h.deps.Tasks.TaskStatus(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func unsupported(id catalog.ChainID) error {
	return errors.Mark(errors.Newf("network %s is not in the catalog", id), shared.ErrUnsupportedChain)
}
