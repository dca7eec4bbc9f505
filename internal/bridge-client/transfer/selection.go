package transfer

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/catalog"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/wallet"
)

// Selection is the UI-facing choice of networks and recipient. Source and
// Target always differ.
type Selection struct {
	Source    catalog.ChainID `json:"sourceChainId"`
	Target    catalog.ChainID `json:"targetChainId"`
	Recipient string          `json:"recipient"`
}

func defaultSelection(cat *catalog.Catalog) Selection {
	all := cat.All()
	var sel Selection
	if len(all) > 0 {
		sel.Source = all[0].ID
	}
	if other, ok := cat.FirstOtherThan(sel.Source); ok {
		sel.Target = other.ID
	}
	return sel
}

func (o *Orchestrator) Selection() Selection {
	o.selMu.Lock()
	defer o.selMu.Unlock()
	return o.sel
}

// SetSource picks the source network. Choosing the current target moves the
// target to the first catalog network that differs.
func (o *Orchestrator) SetSource(id catalog.ChainID) (Selection, error) {
	if _, ok := o.catalog.ByID(id); !ok {
		return o.Selection(), errors.Mark(errors.Newf("network %s is not in the catalog", id), shared.ErrUnsupportedChain)
	}

	o.selMu.Lock()
	defer o.selMu.Unlock()
	o.sel.Source = id
	if o.sel.Target == id {
		if other, ok := o.catalog.FirstOtherThan(id); ok {
			o.sel.Target = other.ID
		}
	}
	return o.sel, nil
}

// SetTarget mirrors SetSource.
func (o *Orchestrator) SetTarget(id catalog.ChainID) (Selection, error) {
	if _, ok := o.catalog.ByID(id); !ok {
		return o.Selection(), errors.Mark(errors.Newf("network %s is not in the catalog", id), shared.ErrUnsupportedChain)
	}

	o.selMu.Lock()
	defer o.selMu.Unlock()
	o.sel.Target = id
	if o.sel.Source == id {
		if other, ok := o.catalog.FirstOtherThan(id); ok {
			o.sel.Source = other.ID
		}
	}
	return o.sel, nil
}

// SetRecipient accepts an address or "" to fall back to the wallet account.
func (o *Orchestrator) SetRecipient(raw string) (Selection, error) {
	r := strings.TrimSpace(raw)
	if r != "" && !common.IsHexAddress(r) {
		return o.Selection(), errors.Mark(errors.Newf("recipient %q is not an address", raw), shared.ErrInvalidRecipient)
	}
	if r != "" {
		r = common.HexToAddress(r).Hex()
	}

	o.selMu.Lock()
	defer o.selMu.Unlock()
	o.sel.Recipient = r
	return o.sel, nil
}

// followAccount points the recipient at the wallet account. A fresh
// connection always takes over; an account switch keeps a recipient the user
// picked.
func (o *Orchestrator) followAccount(kind wallet.ChangeKind, previous, current string) {
	if current == "" {
		return
	}
	o.selMu.Lock()
	defer o.selMu.Unlock()
	switch {
	case kind == wallet.ChangeConnected, previous == "":
		o.sel.Recipient = current
	case o.sel.Recipient == "", strings.EqualFold(o.sel.Recipient, previous):
		o.sel.Recipient = current
	}
}
