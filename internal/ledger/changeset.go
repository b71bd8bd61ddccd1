package ledger

// Changeset stages writes against a State without touching it. Multi-record
// operations (settlement above all) validate every precondition against the
// unmodified state, stage their full effect here, and then Commit in a single
// step; discarding the changeset on a validation failure leaves the ledger
// untouched. Reads go through the changeset so staged writes shadow the
// underlying records.
type Changeset struct {
	state          *State
	assets         map[string]Asset
	escrows        map[string]Escrow
	escrowDeletes  map[string]struct{}
	balances       map[string]uint64
	holdings       map[string]uint64
	holdingDeletes map[string]struct{}
}

// NewChangeset creates an empty changeset over state.
func NewChangeset(state *State) *Changeset {
	return &Changeset{
		state:          state,
		assets:         make(map[string]Asset),
		escrows:        make(map[string]Escrow),
		escrowDeletes:  make(map[string]struct{}),
		balances:       make(map[string]uint64),
		holdings:       make(map[string]uint64),
		holdingDeletes: make(map[string]struct{}),
	}
}

// Asset reads an asset record, staged writes first.
func (c *Changeset) Asset(addr string) (Asset, bool) {
	if a, ok := c.assets[addr]; ok {
		return a, true
	}
	a, ok := c.state.Assets[addr]
	return a, ok
}

// Escrow reads an escrow record, staged writes first.
func (c *Changeset) Escrow(addr string) (Escrow, bool) {
	if _, deleted := c.escrowDeletes[addr]; deleted {
		return Escrow{}, false
	}
	if e, ok := c.escrows[addr]; ok {
		return e, true
	}
	e, ok := c.state.Escrows[addr]
	return e, ok
}

// Balance reads a spendable balance, staged writes first. Absent keys are
// zero.
func (c *Changeset) Balance(id string) uint64 {
	if b, ok := c.balances[id]; ok {
		return b
	}
	return c.state.Balances[id]
}

// Holding reads an ownership-token holding, staged writes first.
func (c *Changeset) Holding(addr string) uint64 {
	if _, deleted := c.holdingDeletes[addr]; deleted {
		return 0
	}
	if h, ok := c.holdings[addr]; ok {
		return h
	}
	return c.state.TokenHoldings[addr]
}

// PutAsset stages an asset write.
func (c *Changeset) PutAsset(a Asset) {
	c.assets[a.Address] = a
}

// PutEscrow stages an escrow write.
func (c *Changeset) PutEscrow(e Escrow) {
	delete(c.escrowDeletes, e.Address)
	c.escrows[e.Address] = e
}

// DeleteEscrow stages removal of an escrow record.
func (c *Changeset) DeleteEscrow(addr string) {
	delete(c.escrows, addr)
	c.escrowDeletes[addr] = struct{}{}
}

// SetBalance stages a spendable-balance write.
func (c *Changeset) SetBalance(id string, amount uint64) {
	c.balances[id] = amount
}

// SetHolding stages an ownership-token holding write.
func (c *Changeset) SetHolding(addr string, amount uint64) {
	delete(c.holdingDeletes, addr)
	c.holdings[addr] = amount
}

// DeleteHolding stages removal of an ownership-token holding.
func (c *Changeset) DeleteHolding(addr string) {
	delete(c.holdings, addr)
	c.holdingDeletes[addr] = struct{}{}
}

// Commit applies every staged write to the underlying state as one step.
// The changeset must not be reused afterwards.
func (c *Changeset) Commit() {
	for addr, a := range c.assets {
		c.state.Assets[addr] = a
	}
	for addr := range c.escrowDeletes {
		delete(c.state.Escrows, addr)
	}
	for addr, e := range c.escrows {
		c.state.Escrows[addr] = e
	}
	for id, b := range c.balances {
		if b == 0 {
			delete(c.state.Balances, id)
			continue
		}
		c.state.Balances[id] = b
	}
	for addr := range c.holdingDeletes {
		delete(c.state.TokenHoldings, addr)
	}
	for addr, h := range c.holdings {
		c.state.TokenHoldings[addr] = h
	}
}
