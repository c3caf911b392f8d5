package ledger

import (
	"context"
	"errors"
	"strconv"

	"lending/core"
	"lending/pkg/id"
	"lending/pkg/metrics"
	"lending/pkg/number"

	"github.com/fox-one/pkg/logger"
	foxuuid "github.com/fox-one/pkg/uuid"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
	"github.com/yiplee/structs"
)

// maxAttempts bounds reruns of a call whose commit lost a version race
const maxAttempts = 3

type positionKey struct {
	id   core.ID
	user string
}

type authKey struct {
	owner    string
	operator string
}

type liquidation struct {
	id     core.ID
	result *core.LiquidationResult
}

// session staged state of one top-level call and every call nested in it
type session struct {
	l     *Ledger
	trace string

	markets map[core.ID]*core.Market
	// loaded state as read from the store, absent for markets created here
	loaded  map[core.ID]*core.Market
	created []core.ID

	positions       map[positionKey]*core.Position
	loadedPositions map[positionKey]*core.Position
	positionOrder   []positionKey

	authorizations map[authKey]*core.Authorization
	authOrder      []authKey

	feeRecipient *string

	transfers    []*core.Transfer
	txs          []*core.Transaction
	liquidations []liquidation
}

func (l *Ledger) newSession() *session {
	return &session{
		l:               l,
		trace:           id.GenTraceID(),
		markets:         make(map[core.ID]*core.Market),
		loaded:          make(map[core.ID]*core.Market),
		positions:       make(map[positionKey]*core.Position),
		loadedPositions: make(map[positionKey]*core.Position),
		authorizations:  make(map[authKey]*core.Authorization),
	}
}

type sessionKey struct {
	l *Ledger
}

func withSession(ctx context.Context, s *session) context.Context {
	return context.WithValue(ctx, sessionKey{l: s.l}, s)
}

func (l *Ledger) sessionFrom(ctx context.Context) *session {
	s, _ := ctx.Value(sessionKey{l: l}).(*session)
	return s
}

// run executes fn atomically. Nested calls roll back to their savepoint on
// failure and leave the decision to commit to the outermost call.
func (l *Ledger) run(ctx context.Context, action core.ActionType, fn func(ctx context.Context, s *session) error) (err error) {
	if s := l.sessionFrom(ctx); s != nil {
		sp := s.savepoint()
		if err := fn(ctx, s); err != nil {
			s.rollback(sp)
			return normalize(err)
		}

		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	defer func() {
		metrics.Ledger().ObserveOperation(action, err)
	}()

	for attempt := 1; ; attempt++ {
		err = l.runSession(ctx, action, fn)
		if attempt >= maxAttempts || !errors.Is(err, core.ErrConflict) {
			return err
		}

		logger.FromContext(ctx).WithError(err).Infof("ledger: %s conflicted, attempt %d", action, attempt)
	}
}

// runSession one attempt of a top-level call on fresh state
func (l *Ledger) runSession(ctx context.Context, action core.ActionType, fn func(ctx context.Context, s *session) error) error {
	s := l.newSession()
	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"ledger": action.String(),
		"trace":  s.trace,
	})
	ctx = logger.WithContext(withSession(ctx, s), log)

	if err := fn(ctx, s); err != nil {
		err = normalize(err)
		log.WithError(err).Debugln("ledger: call aborted")
		return err
	}

	return l.commit(ctx, s)
}

// view runs fn against the running session or, outside of a call, against a
// throwaway one under the writer lock
func (l *Ledger) view(ctx context.Context, fn func(ctx context.Context, s *session) error) error {
	if s := l.sessionFrom(ctx); s != nil {
		return normalize(fn(ctx, s))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return normalize(fn(ctx, l.newSession()))
}

func (l *Ledger) commit(ctx context.Context, s *session) error {
	log := logger.FromContext(ctx)

	if err := s.verify(); err != nil {
		log.WithError(err).Errorln("ledger: invariant violated")
		return err
	}

	cs := s.changeSet()
	if cs.IsEmpty() && len(s.transfers) == 0 {
		return nil
	}

	if err := l.wallet.Settle(ctx, s.transfers); err != nil {
		return core.ErrValidation.Wrap("transfer failed", err)
	}

	if err := l.store.Commit(ctx, cs); err != nil {
		log.WithError(err).Errorln("store.Commit")

		reverse := make([]*core.Transfer, 0, len(s.transfers))
		for idx := len(s.transfers) - 1; idx >= 0; idx-- {
			reverse = append(reverse, s.transfers[idx].Reverse())
		}

		if err := l.wallet.Settle(ctx, reverse); err != nil {
			log.WithError(err).Errorln("wallet.Settle: compensate")
		}

		return err
	}

	for _, m := range append(cs.Created, cs.Markets...) {
		metrics.Ledger().ObserveMarket(m)
	}

	for _, liq := range s.liquidations {
		metrics.Ledger().ObserveLiquidation(liq.id, liq.result)
	}

	if log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		for _, tx := range cs.Transactions {
			log.WithFields(structs.Map(tx)).Debugln("ledger: committed")
		}
	}

	return nil
}

func normalize(err error) error {
	if err == nil {
		return nil
	}

	var e *core.Error
	if errors.As(err, &e) {
		return err
	}

	if errors.Is(err, number.ErrOverflow) ||
		errors.Is(err, number.ErrUnderflow) ||
		errors.Is(err, number.ErrDivisionByZero) {
		return core.ErrArithmetic.Wrap("", err)
	}

	return err
}

type savepoint struct {
	markets        map[core.ID]*core.Market
	positions      map[positionKey]*core.Position
	authorizations map[authKey]*core.Authorization
	feeRecipient   *string

	created       int
	positionOrder int
	authOrder     int
	transfers     int
	txs           int
	liquidations  int
}

func (s *session) savepoint() *savepoint {
	sp := &savepoint{
		markets:        make(map[core.ID]*core.Market, len(s.markets)),
		positions:      make(map[positionKey]*core.Position, len(s.positions)),
		authorizations: make(map[authKey]*core.Authorization, len(s.authorizations)),
		created:        len(s.created),
		positionOrder:  len(s.positionOrder),
		authOrder:      len(s.authOrder),
		transfers:      len(s.transfers),
		txs:            len(s.txs),
		liquidations:   len(s.liquidations),
	}

	for k, m := range s.markets {
		sp.markets[k] = m.Clone()
	}

	for k, p := range s.positions {
		sp.positions[k] = p.Clone()
	}

	for k, a := range s.authorizations {
		c := *a
		sp.authorizations[k] = &c
	}

	if s.feeRecipient != nil {
		v := *s.feeRecipient
		sp.feeRecipient = &v
	}

	return sp
}

// rollback restores values in place, callers up the stack keep valid pointers
func (s *session) rollback(sp *savepoint) {
	for k, m := range s.markets {
		if saved, ok := sp.markets[k]; ok {
			*m = *saved
		} else {
			delete(s.markets, k)
		}
	}

	for k, p := range s.positions {
		if saved, ok := sp.positions[k]; ok {
			*p = *saved
		} else {
			delete(s.positions, k)
		}
	}

	for k, a := range s.authorizations {
		if saved, ok := sp.authorizations[k]; ok {
			*a = *saved
		} else {
			delete(s.authorizations, k)
		}
	}

	s.feeRecipient = sp.feeRecipient
	s.created = s.created[:sp.created]
	s.positionOrder = s.positionOrder[:sp.positionOrder]
	s.authOrder = s.authOrder[:sp.authOrder]
	s.transfers = s.transfers[:sp.transfers]
	s.txs = s.txs[:sp.txs]
	s.liquidations = s.liquidations[:sp.liquidations]
}

// market working copy of id, the empty market if it was never created
func (s *session) market(ctx context.Context, id core.ID) (*core.Market, error) {
	if m, ok := s.markets[id]; ok {
		return m, nil
	}

	m, err := s.l.store.FindMarket(ctx, id)
	if err != nil {
		return nil, err
	}

	if !m.Created() {
		return m, nil
	}

	s.markets[id] = m
	s.loaded[id] = m.Clone()
	return m, nil
}

func (s *session) createdMarket(ctx context.Context, id core.ID) (*core.Market, error) {
	m, err := s.market(ctx, id)
	if err != nil {
		return nil, err
	}

	if !m.Created() {
		return nil, core.ErrValidation.With(core.ReasonMarketNotCreated)
	}

	return m, nil
}

func (s *session) create(m *core.Market) {
	s.markets[m.ID] = m
	s.created = append(s.created, m.ID)
}

func (s *session) position(ctx context.Context, id core.ID, user string) (*core.Position, error) {
	key := positionKey{id: id, user: user}
	if p, ok := s.positions[key]; ok {
		return p, nil
	}

	p, err := s.l.store.FindPosition(ctx, id, user)
	if err != nil {
		return nil, err
	}

	s.positions[key] = p
	if _, ok := s.loadedPositions[key]; !ok {
		s.loadedPositions[key] = p.Clone()
	}
	s.positionOrder = append(s.positionOrder, key)
	return p, nil
}

func (s *session) isAuthorized(ctx context.Context, owner, operator string) (bool, error) {
	if owner == operator {
		return true, nil
	}

	return s.authorization(ctx, owner, operator)
}

// authorization the stored delegation flag, staged changes included
func (s *session) authorization(ctx context.Context, owner, operator string) (bool, error) {
	if a, ok := s.authorizations[authKey{owner: owner, operator: operator}]; ok {
		return a.Authorized, nil
	}

	return s.l.store.IsAuthorized(ctx, owner, operator)
}

func (s *session) authorize(owner, operator string, authorized bool) {
	key := authKey{owner: owner, operator: operator}
	if a, ok := s.authorizations[key]; ok {
		a.Authorized = authorized
		return
	}

	s.authorizations[key] = &core.Authorization{Owner: owner, Operator: operator, Authorized: authorized}
	s.authOrder = append(s.authOrder, key)
}

func (s *session) feeRecipientOf(ctx context.Context) (string, error) {
	if s.feeRecipient != nil {
		return *s.feeRecipient, nil
	}

	r, err := s.l.store.FeeRecipient(ctx)
	if err != nil {
		return "", err
	}

	if r == "" {
		r = s.l.feeRecipient
	}

	return r, nil
}

func (s *session) transfer(asset, from, to string, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}

	s.transfers = append(s.transfers, &core.Transfer{
		Asset:  asset,
		From:   from,
		To:     to,
		Amount: amount.Clone(),
	})
}

// balance wallet balance of account with the queued transfers applied
func (s *session) balance(ctx context.Context, asset, account string) (*uint256.Int, error) {
	b, err := s.l.wallet.BalanceOf(ctx, asset, account)
	if err != nil {
		return nil, err
	}

	in, out := b.Clone(), number.Zero()
	for _, t := range s.transfers {
		if t.Asset != asset {
			continue
		}

		if t.To == account {
			in.Add(in, t.Amount)
		}

		if t.From == account {
			out.Add(out, t.Amount)
		}
	}

	return number.ZeroFloorSub(in, out), nil
}

func (s *session) record(tx *core.Transaction, extra core.TransactionExtraData) {
	tx.TraceID = foxuuid.Modify(s.trace, strconv.Itoa(len(s.txs)))
	tx.CreatedAt = s.l.now()
	tx.SetExtraData(extra)
	s.txs = append(s.txs, tx)
}

// verify re-checks solvency, monotonic accrual time and share conservation of
// every touched market before anything is written
func (s *session) verify() error {
	for id, m := range s.markets {
		if !m.Created() {
			continue
		}

		if !m.Solvent() {
			return core.ErrArithmetic.With("total borrow assets exceed total supply assets in " + id.String())
		}

		supplyBefore, borrowBefore := number.Zero(), number.Zero()
		if orig, ok := s.loaded[id]; ok {
			if m.LastUpdate < orig.LastUpdate {
				return core.ErrArithmetic.With("last update moved backwards in " + id.String())
			}

			supplyBefore, borrowBefore = orig.TotalSupplyShares, orig.TotalBorrowShares
		}

		supplyIn, supplyOut := supplyBefore.Clone(), m.TotalSupplyShares.Clone()
		borrowIn, borrowOut := borrowBefore.Clone(), m.TotalBorrowShares.Clone()
		for key, p := range s.positions {
			if key.id != id {
				continue
			}

			orig := s.loadedPositions[key]
			supplyIn.Add(supplyIn, p.SupplyShares)
			supplyOut.Add(supplyOut, orig.SupplyShares)
			borrowIn.Add(borrowIn, p.BorrowShares)
			borrowOut.Add(borrowOut, orig.BorrowShares)
		}

		if !supplyIn.Eq(supplyOut) || !borrowIn.Eq(borrowOut) {
			return core.ErrArithmetic.With("share totals drifted from positions in " + id.String())
		}
	}

	return nil
}

func (s *session) changeSet() *core.ChangeSet {
	cs := &core.ChangeSet{
		FeeRecipient: s.feeRecipient,
		Transactions: s.txs,
	}

	createdSet := make(map[core.ID]bool, len(s.created))
	for _, id := range s.created {
		createdSet[id] = true
		cs.Created = append(cs.Created, s.markets[id])
	}

	seen := make(map[positionKey]bool, len(s.positionOrder))
	touched := make(map[core.ID]bool)
	for _, key := range s.positionOrder {
		p, ok := s.positions[key]
		if !ok || seen[key] {
			continue
		}

		seen[key] = true
		if !positionEqual(p, s.loadedPositions[key]) {
			cs.Positions = append(cs.Positions, p)
			touched[key.id] = true
		}
	}

	// a market is rewritten with its positions so the commit fails if the
	// totals they were checked against moved
	for id, m := range s.markets {
		if createdSet[id] || !m.Created() {
			continue
		}

		if touched[id] || !marketEqual(m, s.loaded[id]) {
			cs.Markets = append(cs.Markets, m)
		}
	}

	for _, key := range s.authOrder {
		if a, ok := s.authorizations[key]; ok {
			cs.Authorizations = append(cs.Authorizations, a)
		}
	}

	return cs
}

func marketEqual(a, b *core.Market) bool {
	return a.LastUpdate == b.LastUpdate &&
		a.TotalSupplyAssets.Eq(b.TotalSupplyAssets) &&
		a.TotalSupplyShares.Eq(b.TotalSupplyShares) &&
		a.TotalBorrowAssets.Eq(b.TotalBorrowAssets) &&
		a.TotalBorrowShares.Eq(b.TotalBorrowShares) &&
		a.Fee.Eq(b.Fee)
}

func positionEqual(a, b *core.Position) bool {
	return a.SupplyShares.Eq(b.SupplyShares) &&
		a.BorrowShares.Eq(b.BorrowShares) &&
		a.Collateral.Eq(b.Collateral)
}
