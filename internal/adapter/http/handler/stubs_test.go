package handler

import (
	"context"
	"time"

	"github.com/iho/famledger/internal/domain"
)

type commandsStub struct {
	createFn    func(ctx context.Context, cmd domain.CreateTransactionCommand) (*domain.TransactionResult, error)
	updateFn    func(ctx context.Context, cmd domain.UpdateTransactionCommand) (*domain.TransactionResult, error)
	transferFn  func(ctx context.Context, cmd domain.TransferCommand) (*domain.TransferResult, error)
	splitFn     func(ctx context.Context, cmd domain.SplitTransactionCommand) (*domain.SplitTransactionResult, error)
	deleteFn    func(ctx context.Context, cmd domain.DeleteTransactionCommand) (*domain.DeleteResult, error)
	restoreFn   func(ctx context.Context, cmd domain.RestoreTransactionCommand) (*domain.RestoreResult, error)
	settleFn    func(ctx context.Context, cmd domain.SettleTransactionsCommand) (*domain.SettlementResult, error)
	reconcileFn func(ctx context.Context, cmd domain.ReconcileTransactionsCommand) (*domain.ReconciliationResult, error)
	importFn    func(ctx context.Context, cmd domain.BulkImportTransactionsCommand) (*domain.BulkImportResult, error)
}

func (s *commandsStub) CreateTransaction(ctx context.Context, cmd domain.CreateTransactionCommand) (*domain.TransactionResult, error) {
	return s.createFn(ctx, cmd)
}

func (s *commandsStub) UpdateTransaction(ctx context.Context, cmd domain.UpdateTransactionCommand) (*domain.TransactionResult, error) {
	return s.updateFn(ctx, cmd)
}

func (s *commandsStub) Transfer(ctx context.Context, cmd domain.TransferCommand) (*domain.TransferResult, error) {
	return s.transferFn(ctx, cmd)
}

func (s *commandsStub) SplitTransaction(ctx context.Context, cmd domain.SplitTransactionCommand) (*domain.SplitTransactionResult, error) {
	return s.splitFn(ctx, cmd)
}

func (s *commandsStub) DeleteTransaction(ctx context.Context, cmd domain.DeleteTransactionCommand) (*domain.DeleteResult, error) {
	return s.deleteFn(ctx, cmd)
}

func (s *commandsStub) RestoreTransaction(ctx context.Context, cmd domain.RestoreTransactionCommand) (*domain.RestoreResult, error) {
	return s.restoreFn(ctx, cmd)
}

func (s *commandsStub) SettleTransactions(ctx context.Context, cmd domain.SettleTransactionsCommand) (*domain.SettlementResult, error) {
	return s.settleFn(ctx, cmd)
}

func (s *commandsStub) ReconcileTransactions(ctx context.Context, cmd domain.ReconcileTransactionsCommand) (*domain.ReconciliationResult, error) {
	return s.reconcileFn(ctx, cmd)
}

func (s *commandsStub) BulkImportTransactions(ctx context.Context, cmd domain.BulkImportTransactionsCommand) (*domain.BulkImportResult, error) {
	return s.importFn(ctx, cmd)
}

type balancesStub struct {
	historyFn     func(ctx context.Context, accountID domain.AccountID, from, to time.Time, strategy domain.BalanceStrategy) ([]domain.Balance, error)
	verifyFn      func(ctx context.Context, accountID domain.AccountID, from, to time.Time) ([]domain.Balance, error)
	materializeFn func(ctx context.Context, accountID domain.AccountID, from, to time.Time) ([]domain.Balance, error)
	summaryFn     func(ctx context.Context, accountID domain.AccountID) (*domain.BalanceSummary, error)
}

func (s *balancesStub) History(ctx context.Context, accountID domain.AccountID, from, to time.Time, strategy domain.BalanceStrategy) ([]domain.Balance, error) {
	return s.historyFn(ctx, accountID, from, to, strategy)
}

func (s *balancesStub) Verify(ctx context.Context, accountID domain.AccountID, from, to time.Time) ([]domain.Balance, error) {
	return s.verifyFn(ctx, accountID, from, to)
}

func (s *balancesStub) Materialize(ctx context.Context, accountID domain.AccountID, from, to time.Time) ([]domain.Balance, error) {
	return s.materializeFn(ctx, accountID, from, to)
}

func (s *balancesStub) Summary(ctx context.Context, accountID domain.AccountID) (*domain.BalanceSummary, error) {
	return s.summaryFn(ctx, accountID)
}
