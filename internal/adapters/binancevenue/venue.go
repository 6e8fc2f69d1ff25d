package binancevenue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/google/uuid"

	"swingBot/internal/domain"
	"swingBot/internal/ports"
)

// Venue implements ports.Venue against the Binance spot API.
type Venue struct {
	client      BinanceClient
	logger      ports.Logger
	newClientID func() string

	mu      sync.RWMutex
	symbols []string // Symbols scanned by ListOrders
}

// Config holds configuration specific to the Binance venue adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	BaseURL    string // Overrides UseTestnet when set
	Logger     ports.Logger
}

// New creates a Binance spot venue.
func New(cfg Config) (*Venue, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance venue")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Venue will only work for public endpoints.")
	}

	if cfg.UseTestnet {
		binance.UseTestnet = true
	}
	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}
	cfg.Logger.Info(context.Background(), "Binance venue configured", map[string]interface{}{
		"baseURL": client.BaseURL,
		"testnet": cfg.UseTestnet,
	})

	return newWithClient(&realBinanceClient{client: client}, cfg.Logger), nil
}

func newWithClient(client BinanceClient, logger ports.Logger) *Venue {
	return &Venue{
		client:      client,
		logger:      logger,
		newClientID: uuid.NewString,
	}
}

// TrackSymbols sets the symbols ListOrders scans. Binance has no account-wide order history.
func (v *Venue) TrackSymbols(symbols []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.symbols = append([]string(nil), symbols...)
}

// SubmitOrder places an order.
func (v *Venue) SubmitOrder(ctx context.Context, req domain.OrderRequest) (*domain.VenueOrder, error) {
	op := "SubmitOrder"
	fields := map[string]interface{}{
		"symbol": req.Symbol,
		"side":   req.Side,
		"type":   req.Type,
		"qty":    req.Qty.String(),
	}
	if err := req.Validate(); err != nil {
		return nil, v.handleError(ctx, fmt.Errorf("%w: %w", ports.ErrInvalidRequest, err), op, fields)
	}

	clientID := v.newClientID()
	fields["clientOrderID"] = clientID
	svc := v.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(fromSide(req.Side)).
		Type(fromType(req.Type)).
		Quantity(req.Qty.String()).
		NewClientOrderID(clientID)
	if price, err := req.LimitPrice.Take(); err == nil {
		fields["limitPrice"] = price.String()
		svc = svc.Price(price.String()).TimeInForce(fromTimeInForce(req.TimeInForce))
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, v.handleError(ctx, err, op, fields)
	}
	order, err := fromCreateResponse(resp)
	if err != nil {
		return nil, v.handleError(ctx, err, op, fields)
	}
	fields["orderID"] = order.ID
	v.logger.Info(ctx, "Order submitted", fields)
	return order, nil
}

// CancelOrder cancels a working order.
func (v *Venue) CancelOrder(ctx context.Context, orderID string) error {
	op := "CancelOrder"
	fields := map[string]interface{}{"orderID": orderID}
	symbol, id, err := parseOrderID(orderID)
	if err != nil {
		return v.handleError(ctx, err, op, fields)
	}
	if _, err := v.client.NewCancelOrderService().Symbol(symbol).OrderID(id).Do(ctx); err != nil {
		return v.handleError(ctx, err, op, fields)
	}
	v.logger.Info(ctx, "Order canceled", fields)
	return nil
}

// GetOrder fetches the current state of an order.
func (v *Venue) GetOrder(ctx context.Context, orderID string) (*domain.VenueOrder, error) {
	op := "GetOrder"
	fields := map[string]interface{}{"orderID": orderID}
	symbol, id, err := parseOrderID(orderID)
	if err != nil {
		return nil, v.handleError(ctx, err, op, fields)
	}
	resp, err := v.client.NewGetOrderService().Symbol(symbol).OrderID(id).Do(ctx)
	if err != nil {
		return nil, v.handleError(ctx, err, op, fields)
	}
	order, err := fromOrder(resp)
	if err != nil {
		return nil, v.handleError(ctx, err, op, fields)
	}
	return order, nil
}

// ListOrders returns orders of the tracked symbols created after the given time, oldest first.
func (v *Venue) ListOrders(ctx context.Context, after time.Time, filter domain.StatusFilter) ([]*domain.VenueOrder, error) {
	op := "ListOrders"
	v.mu.RLock()
	symbols := v.symbols
	v.mu.RUnlock()

	var out []*domain.VenueOrder
	for _, symbol := range symbols {
		fields := map[string]interface{}{"symbol": symbol, "after": after.UTC().Format(time.RFC3339)}
		resp, err := v.client.NewListOrdersService().Symbol(symbol).StartTime(after.UnixMilli()).Do(ctx)
		if err != nil {
			return nil, v.handleError(ctx, err, op, fields)
		}
		for _, o := range resp {
			order, err := fromOrder(o)
			if err != nil {
				return nil, v.handleError(ctx, err, op, fields)
			}
			// StartTime is inclusive at the exchange
			if !order.CreatedAt.After(after) || !filter.Matches(order.Status) {
				continue
			}
			out = append(out, order)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Clock reports the exchange time. Spot markets never close.
func (v *Venue) Clock(ctx context.Context) (domain.MarketClock, error) {
	op := "Clock"
	ms, err := v.client.NewServerTimeService().Do(ctx)
	if err != nil {
		return domain.MarketClock{}, v.handleError(ctx, err, op, nil)
	}
	return domain.MarketClock{Timestamp: time.UnixMilli(ms).UTC(), IsOpen: true}, nil
}

// ListAssets returns the exchange's symbols. Only trading spot symbols are tradable.
func (v *Venue) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	op := "ListAssets"
	info, err := v.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, v.handleError(ctx, err, op, nil)
	}
	assets := make([]domain.Asset, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		assets = append(assets, domain.Asset{
			Symbol:   s.Symbol,
			Tradable: s.Status == string(binance.SymbolStatusTypeTrading) && s.IsSpotTradingAllowed,
		})
	}
	return assets, nil
}

// GetKlines returns the most recent candles for a symbol, oldest first.
func (v *Venue) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	op := "GetKlines"
	fields := map[string]interface{}{"symbol": symbol, "interval": interval, "limit": limit}
	resp, err := v.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, v.handleError(ctx, err, op, fields)
	}
	klines := make([]*domain.Kline, 0, len(resp))
	for _, k := range resp {
		kl, err := fromKline(symbol, interval, k)
		if err != nil {
			return nil, v.handleError(ctx, err, op, fields)
		}
		klines = append(klines, kl)
	}
	return klines, nil
}
