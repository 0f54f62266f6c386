package mocks

//go:generate mockgen -destination=./mock_exchange.go -package=mocks trend_trader/internal/market Exchange
//go:generate mockgen -destination=./mock_sender.go -package=mocks trend_trader/internal/journal Sender
//go:generate mockgen -destination=./mock_state_store.go -package=mocks trend_trader/internal/watcher StateStore
