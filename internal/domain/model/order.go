package model

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// 許可する遷移だけを列挙。表に無い遷移は全部拒否。
var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderStatusTransitions[s]
	return ok
}

// 同一ステータスへの遷移も不正扱い。
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, t := range orderStatusTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// 注文はベンダー単位。1回のチェックアウトでベンダー数ぶん作られる。
// 金額はすべて最小通貨単位の整数。
type Order struct {
	ID            int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber   string        `gorm:"type:varchar(40);not null;uniqueIndex" json:"order_number"`
	UserID        int64         `gorm:"not null;index" json:"user_id"`
	VendorID      int64         `gorm:"not null;index;uniqueIndex:idx_orders_idem_vendor" json:"vendor_id"`
	AddressID     int64         `gorm:"not null" json:"address_id"`
	Status        OrderStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null" json:"payment_status"`
	PaymentMethod string        `gorm:"type:varchar(50);not null" json:"payment_method"`
	Subtotal      int64         `gorm:"not null" json:"subtotal"`
	ShippingFee   int64         `gorm:"not null" json:"shipping_fee"`
	//買い手には請求しない。ベンダー精算の照合用に保存する。
	Commission int64 `gorm:"not null" json:"commission"`
	Discount   int64 `gorm:"not null" json:"discount"`
	Total      int64 `gorm:"not null" json:"total"`
	//同じキーは1チェックアウト。ベンダーごとに1行なので複合ユニーク。
	IdempotencyKey string    `gorm:"type:varchar(255);not null;index;uniqueIndex:idx_orders_idem_vendor" json:"-"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
