package model

// TradeMode isolates simulated capital from real capital. Orders and holdings
// never cross modes; an order keeps the mode it was placed under.
type TradeMode string

const (
	TradeModePaper TradeMode = "paper"
	TradeModeLive  TradeMode = "live"
)

func (m TradeMode) Valid() bool {
	return m == TradeModePaper || m == TradeModeLive
}

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

type PriceKind string

const (
	PriceKindMarket PriceKind = "market"
	PriceKindLimit  PriceKind = "limit"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusSubmitted OrderStatus = "submitted"
	OrderStatusPartial   OrderStatus = "partial"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Terminal reports whether no further fills or cancels may apply.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

type MatchKind string

const (
	MatchKindEntered MatchKind = "entered"
	MatchKindExited  MatchKind = "exited"
)

type SignalStatus string

const (
	SignalStatusActive  SignalStatus = "active"
	SignalStatusStopped SignalStatus = "stopped"
	SignalStatusError   SignalStatus = "error"
)

const (
	MarketKospi  = "KOSPI"
	MarketKosdaq = "KOSDAQ"
)

type InstrumentModel struct {
	ID            int64  `gorm:"column:id;primaryKey" json:"id"`
	Code          string `gorm:"column:code;uniqueIndex" json:"code"`
	Name          string `gorm:"column:name" json:"name"`
	Market        string `gorm:"column:market" json:"market"`
	IsActive      bool   `gorm:"column:is_active" json:"is_active"`
	CreatedAtUnix int64  `gorm:"column:created_at" json:"created_at"`
	UpdatedAtUnix int64  `gorm:"column:updated_at" json:"updated_at"`
}

func (InstrumentModel) TableName() string { return "instruments" }

type TradingConfigModel struct {
	ID                  int64     `gorm:"column:id;primaryKey" json:"id"`
	Name                string    `gorm:"column:name" json:"name"`
	TradeMode           TradeMode `gorm:"column:trade_mode" json:"trade_mode"`
	AppKey              string    `gorm:"column:app_key" json:"-"`
	AppSecret           string    `gorm:"column:app_secret" json:"-"`
	AccountNo           string    `gorm:"column:account_no" json:"account_no"`
	IsActive            bool      `gorm:"column:is_active" json:"is_active"`
	MaxBuyAmount        int64     `gorm:"column:max_buy_amount" json:"max_buy_amount"`
	MaxBuyPerInstrument int64     `gorm:"column:max_buy_per_instrument" json:"max_buy_per_instrument"`
	CreatedAtUnix       int64     `gorm:"column:created_at" json:"created_at"`
	UpdatedAtUnix       int64     `gorm:"column:updated_at" json:"updated_at"`
}

func (TradingConfigModel) TableName() string { return "trading_configs" }

// HasCredentials reports whether both credential fields are populated,
// required before live mode may be activated.
func (c *TradingConfigModel) HasCredentials() bool {
	return c.AppKey != "" && c.AppSecret != ""
}

type SignalModel struct {
	ID             int64        `gorm:"column:id;primaryKey" json:"id"`
	ConditionIndex int          `gorm:"column:condition_index;uniqueIndex:idx_signal_identity,priority:1" json:"condition_index"`
	ConditionName  string       `gorm:"column:condition_name;uniqueIndex:idx_signal_identity,priority:2" json:"condition_name"`
	IsRealtime     bool         `gorm:"column:is_realtime" json:"is_realtime"`
	AutoTrade      bool         `gorm:"column:auto_trade" json:"auto_trade"`
	Status         SignalStatus `gorm:"column:status" json:"status"`
	ConfigID       *int64       `gorm:"column:config_id" json:"config_id"`
	CreatedAtUnix  int64        `gorm:"column:created_at" json:"created_at"`
	UpdatedAtUnix  int64        `gorm:"column:updated_at" json:"updated_at"`
}

func (SignalModel) TableName() string { return "signals" }

// SignalMatchModel is an append-only audit row. The engine never mutates or
// deletes matches once written.
type SignalMatchModel struct {
	ID            int64     `gorm:"column:id;primaryKey" json:"id"`
	SignalID      int64     `gorm:"column:signal_id;index" json:"signal_id"`
	InstrumentID  int64     `gorm:"column:instrument_id;index" json:"instrument_id"`
	MatchKind     MatchKind `gorm:"column:match_kind" json:"match_kind"`
	MatchedAtUnix int64     `gorm:"column:matched_at" json:"matched_at"`
}

func (SignalMatchModel) TableName() string { return "signal_matches" }

type OrderModel struct {
	ID             int64       `gorm:"column:id;primaryKey" json:"id"`
	InstrumentID   int64       `gorm:"column:instrument_id;index" json:"instrument_id"`
	Side           OrderSide   `gorm:"column:side" json:"side"`
	PriceKind      PriceKind   `gorm:"column:price_kind" json:"price_kind"`
	Quantity       int64       `gorm:"column:quantity" json:"quantity"`
	Price          int64       `gorm:"column:price" json:"price"`
	FilledQuantity int64       `gorm:"column:filled_quantity" json:"filled_quantity"`
	FilledPrice    int64       `gorm:"column:filled_price" json:"filled_price"`
	Status         OrderStatus `gorm:"column:status" json:"status"`
	OrderRef       string      `gorm:"column:order_ref;index" json:"order_ref"`
	TradeMode      TradeMode   `gorm:"column:trade_mode" json:"trade_mode"`
	SignalID       *int64      `gorm:"column:signal_id" json:"signal_id"`
	Reason         string      `gorm:"column:reason" json:"reason"`
	CreatedAtUnix  int64       `gorm:"column:created_at" json:"created_at"`
	UpdatedAtUnix  int64       `gorm:"column:updated_at" json:"updated_at"`
}

func (OrderModel) TableName() string { return "orders" }

type HoldingModel struct {
	ID            int64     `gorm:"column:id;primaryKey" json:"id"`
	InstrumentID  int64     `gorm:"column:instrument_id;uniqueIndex:idx_holding_identity,priority:1" json:"instrument_id"`
	TradeMode     TradeMode `gorm:"column:trade_mode;uniqueIndex:idx_holding_identity,priority:2" json:"trade_mode"`
	Quantity      int64     `gorm:"column:quantity" json:"quantity"`
	AvgPrice      int64     `gorm:"column:avg_price" json:"avg_price"`
	CurrentPrice  int64     `gorm:"column:current_price" json:"current_price"`
	ProfitRate    float64   `gorm:"column:profit_rate" json:"profit_rate"`
	ProfitAmount  int64     `gorm:"column:profit_amount" json:"profit_amount"`
	UpdatedAtUnix int64     `gorm:"column:updated_at" json:"updated_at"`
}

func (HoldingModel) TableName() string { return "holdings" }

// FillModel is the append-only execution ledger: one row per fill event
// received from the bridge, not one per order.
type FillModel struct {
	ID           int64     `gorm:"column:id;primaryKey" json:"id"`
	InstrumentID int64     `gorm:"column:instrument_id;index" json:"instrument_id"`
	OrderID      int64     `gorm:"column:order_id;index" json:"order_id"`
	OrderRef     string    `gorm:"column:order_ref" json:"order_ref"`
	Side         OrderSide `gorm:"column:side" json:"side"`
	Quantity     int64     `gorm:"column:quantity" json:"quantity"`
	Price        int64     `gorm:"column:price" json:"price"`
	TotalAmount  int64     `gorm:"column:total_amount" json:"total_amount"`
	TradeMode    TradeMode `gorm:"column:trade_mode" json:"trade_mode"`
	TradedAtUnix int64     `gorm:"column:traded_at" json:"traded_at"`
}

func (FillModel) TableName() string { return "fills" }
