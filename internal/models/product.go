package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Product condition grades.
const (
	ConditionNew     = "new"
	ConditionLikeNew = "like_new"
	ConditionGood    = "good"
	ConditionFair    = "fair"
	ConditionPoor    = "poor"
)

// Inquiry statuses. Any status may follow any other; transitions are
// owner-driven without a protocol.
const (
	InquiryStatusNew     = "new"
	InquiryStatusReplied = "replied"
	InquiryStatusClosed  = "closed"
)

// MaxProductImages caps the image collection per product.
const MaxProductImages = 10

// Conditions lists the accepted condition values in display order.
var Conditions = []string{ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor}

// ValidCondition reports whether v is an accepted condition grade.
func ValidCondition(v string) bool {
	for _, c := range Conditions {
		if c == v {
			return true
		}
	}
	return false
}

// Product is a classified listing owned by its seller.
type Product struct {
	BaseModel
	Title            string            `json:"title"`
	Slug             string            `gorm:"uniqueIndex" json:"slug"`
	CategoryID       uuid.UUID         `gorm:"type:uuid;index" json:"category_id"`
	Category         *Category         `json:"category,omitempty"`
	SellerID         uuid.UUID         `gorm:"type:uuid;index" json:"seller_id"`
	Seller           *User             `json:"seller,omitempty"`
	Brand            string            `json:"brand"`
	Model            string            `json:"model"`
	Condition        string            `json:"condition"`
	Attributes       datatypes.JSONMap `json:"attributes"`
	LocationCity     string            `json:"location_city"`
	LocationProvince string            `json:"location_province"`
	LocationDetail   string            `json:"location_detail"`
	Price            decimal.Decimal   `gorm:"type:numeric(15,2)" json:"price"`
	Currency         string            `gorm:"default:'IDR'" json:"currency"`
	IsNegotiable     bool              `gorm:"default:true" json:"is_negotiable"`
	ContactName      string            `json:"contact_name"`
	ContactPhone     string            `json:"contact_phone"`
	ContactEmail     string            `json:"contact_email"`
	Description      string            `json:"description"`
	IsActive         bool              `gorm:"default:true" json:"is_active"`
	IsFeatured       bool              `json:"is_featured"`
	IsSold           bool              `json:"is_sold"`
	MetaTitle        string            `json:"meta_title"`
	MetaDescription  string            `json:"meta_description"`
	Images           []ProductImage    `json:"images,omitempty"`
	Views            []ProductView     `json:"views,omitempty"`
	Inquiries        []ProductInquiry  `json:"inquiries,omitempty"`
}

// DisplayName is "Brand Model" when both are set, else the title.
func (p *Product) DisplayName() string {
	if p.Brand != "" && p.Model != "" {
		return p.Brand + " " + p.Model
	}
	return p.Title
}

// FormattedPrice renders the price with currency-specific grouping.
// IDR uses dot separators and no decimals, USD/EUR two decimals with
// comma grouping, anything else falls back to "<CUR> n.nn".
func (p *Product) FormattedPrice() string {
	switch p.Currency {
	case "IDR":
		return "Rp " + groupDigits(p.Price.Round(0).String(), ".")
	case "USD":
		return "$" + groupDigits(p.Price.StringFixed(2), ",")
	case "EUR":
		return "€" + groupDigits(p.Price.StringFixed(2), ",")
	default:
		return p.Currency + " " + groupDigits(p.Price.StringFixed(2), ",")
	}
}

// WhatsAppLink builds a wa.me deep link to the seller. Indonesian
// numbers written with a leading 0 are rewritten to country code 62.
func (p *Product) WhatsAppLink() string {
	phone := strings.NewReplacer("+", "", "-", "", " ", "").Replace(p.ContactPhone)
	if strings.HasPrefix(phone, "0") {
		phone = "62" + phone[1:]
	}

	message := fmt.Sprintf("Halo, saya tertarik dengan %s yang Anda jual seharga %s",
		p.DisplayName(), p.FormattedPrice())
	return "https://wa.me/" + phone + "?text=" + url.QueryEscape(message)
}

// Attribute reads one key from the free-form attribute map.
func (p *Product) Attribute(key string) (string, bool) {
	if p.Attributes == nil {
		return "", false
	}
	v, ok := p.Attributes[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func groupDigits(value, sep string) string {
	sign := ""
	if strings.HasPrefix(value, "-") {
		sign = "-"
		value = value[1:]
	}
	intPart, fracPart := value, ""
	if dot := strings.Index(value, "."); dot >= 0 {
		intPart, fracPart = value[:dot], value[dot:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(sep)
		}
		b.WriteRune(r)
	}
	if sep == "." {
		fracPart = strings.Replace(fracPart, ".", ",", 1)
	}
	return sign + b.String() + fracPart
}

// ProductImage belongs exclusively to one product. At most one image
// per product carries IsMain; at most MaxProductImages rows exist.
type ProductImage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	Image     string    `json:"image"`
	Caption   string    `json:"caption"`
	IsMain    bool      `json:"is_main"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns the image ID.
func (i *ProductImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// ProductView is one de-duplicated detail-page visit. The
// (product, ip, session) triple is unique; repeat visits are dropped.
type ProductView struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID  uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_view_dedup" json:"product_id"`
	IPAddress  string    `gorm:"uniqueIndex:idx_view_dedup" json:"ip_address"`
	SessionKey string    `gorm:"uniqueIndex:idx_view_dedup" json:"session_key"`
	UserAgent  string    `json:"user_agent"`
	ViewedAt   time.Time `gorm:"autoCreateTime" json:"viewed_at"`
}

// BeforeCreate assigns the view ID.
func (v *ProductView) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// ProductInquiry is a buyer contact message tied to one product.
// Inquirer fields are all optional; anonymous visitors may inquire.
type ProductInquiry struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID     uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	Product       *Product  `json:"product,omitempty"`
	InquirerName  string    `json:"inquirer_name"`
	InquirerPhone string    `json:"inquirer_phone"`
	InquirerEmail string    `json:"inquirer_email"`
	Message       string    `json:"message"`
	Status        string    `gorm:"default:'new'" json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// BeforeCreate assigns the inquiry ID.
func (q *ProductInquiry) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
