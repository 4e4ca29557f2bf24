package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"paymenow.backend/internal/domain/entities"
	"paymenow.backend/internal/domain/repositories"
	"paymenow.backend/internal/infrastructure/memory"
	gormrepos "paymenow.backend/internal/infrastructure/repositories"
	"paymenow.backend/internal/usecases"
)

const (
	withdrawalAddress = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	otherAddress      = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ledgerEnv is one engine wired to one storage backend
type ledgerEnv struct {
	ledger     *usecases.LedgerUsecase
	balances   repositories.BalanceRepository
	txs        repositories.TransactionRepository
	notifier   *recordingNotifier
	addAccount func(t *testing.T) uuid.UUID
}

type envOptions struct {
	cfg      usecases.LedgerConfig
	gateway  usecases.SettlementGateway
	wrapBal  func(repositories.BalanceRepository) repositories.BalanceRepository
	wrapTxs  func(repositories.TransactionRepository) repositories.TransactionRepository
	notifier *recordingNotifier
}

type envOption func(*envOptions)

func withConfig(cfg usecases.LedgerConfig) envOption {
	return func(o *envOptions) { o.cfg = cfg }
}

func withGateway(gw usecases.SettlementGateway) envOption {
	return func(o *envOptions) { o.gateway = gw }
}

func withBalanceFaults(wrap func(repositories.BalanceRepository) repositories.BalanceRepository) envOption {
	return func(o *envOptions) { o.wrapBal = wrap }
}

func withTransactionFaults(wrap func(repositories.TransactionRepository) repositories.TransactionRepository) envOption {
	return func(o *envOptions) { o.wrapTxs = wrap }
}

func buildOptions(opts []envOption) envOptions {
	o := envOptions{
		cfg: usecases.LedgerConfig{
			SettlementTimeout:   200 * time.Millisecond,
			ConfirmPollInterval: time.Millisecond,
		},
		gateway:  &fakeGateway{},
		notifier: &recordingNotifier{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o envOptions) wrap(b repositories.BalanceRepository, t repositories.TransactionRepository) (repositories.BalanceRepository, repositories.TransactionRepository) {
	if o.wrapBal != nil {
		b = o.wrapBal(b)
	}
	if o.wrapTxs != nil {
		t = o.wrapTxs(t)
	}
	return b, t
}

func newMemoryEnv(t *testing.T, opts ...envOption) *ledgerEnv {
	t.Helper()
	o := buildOptions(opts)
	store := memory.NewStore()
	balances, txs := o.wrap(memory.NewBalanceRepository(store), memory.NewTransactionRepository(store))

	return &ledgerEnv{
		ledger: usecases.NewLedgerUsecase(balances, txs, memory.NewAccountRepository(store),
			memory.NewUnitOfWork(), o.gateway, o.notifier, o.cfg),
		balances: balances,
		txs:      txs,
		notifier: o.notifier,
		addAccount: func(t *testing.T) uuid.UUID {
			id := uuid.New()
			store.AddAccount(&entities.Account{ID: id, Email: id.String() + "@example.com"})
			return id
		},
	}
}

func newSQLiteEnv(t *testing.T, opts ...envOption) *ledgerEnv {
	t.Helper()
	o := buildOptions(opts)
	db := newLedgerDB(t)
	balances, txs := o.wrap(gormrepos.NewBalanceRepository(db), gormrepos.NewTransactionRepository(db))

	return &ledgerEnv{
		ledger: usecases.NewLedgerUsecase(balances, txs, gormrepos.NewAccountRepository(db),
			gormrepos.NewUnitOfWork(db), o.gateway, o.notifier, o.cfg),
		balances: balances,
		txs:      txs,
		notifier: o.notifier,
		addAccount: func(t *testing.T) uuid.UUID {
			id := uuid.New()
			require.NoError(t, db.Exec("INSERT INTO accounts (id, email, name, created_at) VALUES (?,?,?,?)",
				id.String(), id.String()+"@example.com", "Test Account", time.Now().UTC()).Error)
			return id
		},
	}
}

var backends = []struct {
	name  string
	build func(t *testing.T, opts ...envOption) *ledgerEnv
}{
	{"memory", newMemoryEnv},
	{"sqlite", newSQLiteEnv},
}

// newLedgerDB builds the schema on SQLite. SQLite keeps a NUMERIC with a
// fractional part as a float, so tests running on this backend use amounts
// that are exact in binary (integers and halves). Exact decimal arithmetic on
// the gorm path is covered against the Postgres dialect with sqlmock.
func newLedgerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:ledger_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, ddl := range []string{
		`CREATE TABLE accounts (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			name TEXT,
			created_at DATETIME
		);`,
		`CREATE TABLE wallet_balances (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			asset_type TEXT NOT NULL,
			balance NUMERIC NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME,
			UNIQUE (account_id, asset_type)
		);`,
		`CREATE TABLE ledger_transactions (
			id TEXT PRIMARY KEY,
			idempotency_key TEXT UNIQUE,
			from_account TEXT,
			to_account TEXT,
			external_address TEXT,
			amount NUMERIC NOT NULL,
			asset_type TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			settlement_reference TEXT,
			failure_reason TEXT,
			memo TEXT NOT NULL DEFAULT '',
			created_at DATETIME,
			updated_at DATETIME,
			finalized_at DATETIME
		);`,
	} {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func (e *ledgerEnv) fund(t *testing.T, accountID uuid.UUID, asset entities.AssetType, amount string) {
	t.Helper()
	_, err := e.ledger.DepositForUser(context.Background(), entities.DepositInput{
		AccountID: accountID,
		Amount:    dec(amount),
		AssetType: asset,
	})
	require.NoError(t, err)
}

func (e *ledgerEnv) balance(t *testing.T, accountID uuid.UUID, asset entities.AssetType) decimal.Decimal {
	t.Helper()
	got, err := e.balances.Get(context.Background(), entities.WalletKey{AccountID: accountID, AssetType: asset})
	require.NoError(t, err)
	return got
}

func (e *ledgerEnv) history(t *testing.T, accountID uuid.UUID) []*entities.Transaction {
	t.Helper()
	var out []*entities.Transaction
	for tx, err := range e.ledger.ListTransactions(context.Background(), accountID, entities.TransactionFilter{}) {
		require.NoError(t, err)
		out = append(out, tx)
	}
	return out
}

// fakeGateway signs and broadcasts everything unless prepareFn or broadcastFn
// say otherwise and answers Confirm from statuses, repeating the last one.
type fakeGateway struct {
	mu          sync.Mutex
	prepareFn   func(ctx context.Context) (entities.PreparedSettlement, error)
	broadcastFn func(ctx context.Context) error
	statuses    []entities.SettlementStatus
	confirmErr  error
	prepares    int
	broadcasts  []string
	confirms    int
}

func (g *fakeGateway) Prepare(ctx context.Context, destination string, amount decimal.Decimal, asset entities.AssetType) (entities.PreparedSettlement, error) {
	g.mu.Lock()
	g.prepares++
	fn := g.prepareFn
	g.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return entities.PreparedSettlement{Reference: "sig-" + uuid.NewString(), Payload: "signed"}, nil
}

func (g *fakeGateway) Broadcast(ctx context.Context, prepared entities.PreparedSettlement) error {
	g.mu.Lock()
	g.broadcasts = append(g.broadcasts, prepared.Reference)
	fn := g.broadcastFn
	g.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return nil
}

func (g *fakeGateway) Confirm(ctx context.Context, reference string) (entities.SettlementStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.confirms++
	if g.confirmErr != nil {
		return "", g.confirmErr
	}
	if len(g.statuses) == 0 {
		return entities.SettlementConfirmed, nil
	}
	status := g.statuses[0]
	if len(g.statuses) > 1 {
		g.statuses = g.statuses[1:]
	}
	return status, nil
}

func (g *fakeGateway) prepareCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prepares
}

func (g *fakeGateway) broadcastRefs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.broadcasts...)
}

func prepareUntilDeadline(ctx context.Context) (entities.PreparedSettlement, error) {
	<-ctx.Done()
	return entities.PreparedSettlement{}, ctx.Err()
}

func broadcastUntilDeadline(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []entities.Notification
}

func (n *recordingNotifier) Notify(ctx context.Context, msg entities.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *recordingNotifier) outcomesFor(accountID uuid.UUID) []entities.NotificationOutcome {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []entities.NotificationOutcome
	for _, msg := range n.sent {
		if msg.AccountID == accountID {
			out = append(out, msg.Outcome)
		}
	}
	return out
}

// faultyTransactions fails Create, Finalize or AttachReference with the configured error
type faultyTransactions struct {
	repositories.TransactionRepository
	createErr   error
	finalizeErr error
	attachErr   error
	attaches    int
}

func (f *faultyTransactions) AttachReference(ctx context.Context, id uuid.UUID, reference string) error {
	f.attaches++
	if f.attachErr != nil {
		return f.attachErr
	}
	return f.TransactionRepository.AttachReference(ctx, id, reference)
}

// flakyAttach fails the first failures AttachReference calls
type flakyAttach struct {
	repositories.TransactionRepository
	failures int
}

func (f *flakyAttach) AttachReference(ctx context.Context, id uuid.UUID, reference string) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("connection reset")
	}
	return f.TransactionRepository.AttachReference(ctx, id, reference)
}

func (f *faultyTransactions) Create(ctx context.Context, tx *entities.Transaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.TransactionRepository.Create(ctx, tx)
}

func (f *faultyTransactions) Finalize(ctx context.Context, id uuid.UUID, status entities.TransactionStatus, reference, reason string) error {
	if f.finalizeErr != nil {
		return f.finalizeErr
	}
	return f.TransactionRepository.Finalize(ctx, id, status, reference, reason)
}

// faultyBalances fails Upsert for one account and Adjust calls matched by failAdjust
type faultyBalances struct {
	repositories.BalanceRepository
	failUpsertFor uuid.UUID
	failAdjust    func(key entities.WalletKey, delta decimal.Decimal) bool
	err           error
}

func (f *faultyBalances) Upsert(ctx context.Context, key entities.WalletKey, initial decimal.Decimal) error {
	if key.AccountID == f.failUpsertFor {
		return f.err
	}
	return f.BalanceRepository.Upsert(ctx, key, initial)
}

func (f *faultyBalances) Adjust(ctx context.Context, key entities.WalletKey, delta, minimum decimal.Decimal) (decimal.Decimal, error) {
	if f.failAdjust != nil && f.failAdjust(key, delta) {
		return decimal.Zero, f.err
	}
	return f.BalanceRepository.Adjust(ctx, key, delta, minimum)
}
