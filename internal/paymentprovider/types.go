package paymentprovider

// Значения полей запроса на создание счёта.
const (
	FrequencyOneTime = "ONE_TIME"
	MethodPix        = "PIX"
)

// Product позиция счёта.
type Product struct {
	ExternalID  string `json:"externalId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Price       int    `json:"price"` // в центах
}

// Customer данные покупателя.
type Customer struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Cellphone string `json:"cellphone,omitempty"`
}

// BillingMetadata метаданные, которые провайдер возвращает в вебхуках.
type BillingMetadata struct {
	UserID string `json:"user_id"`
	Plan   string `json:"plan"`
}

// CreateBillingRequest запрос POST /billing/create.
type CreateBillingRequest struct {
	Frequency     string          `json:"frequency"`
	Methods       []string        `json:"methods"`
	Products      []Product       `json:"products"`
	ReturnURL     string          `json:"returnUrl"`
	CompletionURL string          `json:"completionUrl"`
	Customer      Customer        `json:"customer"`
	Metadata      BillingMetadata `json:"metadata"`
}

// Billing счёт провайдера.
type Billing struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// billingEnvelope ответ провайдера: поля бывают как в data, так и на верхнем уровне.
type billingEnvelope struct {
	Data  *Billing `json:"data"`
	Error any      `json:"error"`
	Billing
}

type billingListEnvelope struct {
	Data  []Billing `json:"data"`
	Error any       `json:"error"`
}
