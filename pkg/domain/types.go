package domain

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

const OrderStatusPending = "pending"

// User is persisted with its password hash; use Public for API responses.
type User struct {
	ID        int      `json:"id"`
	Firstname string   `json:"firstname"`
	Lastname  string   `json:"lastname"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Role      UserRole `json:"role"`
	CreatedAt int64    `json:"created_at"`
}

// PublicUser is the client-facing view of a user, without the password hash.
type PublicUser struct {
	ID        int      `json:"id"`
	Firstname string   `json:"firstname"`
	Lastname  string   `json:"lastname"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
	CreatedAt int64    `json:"created_at"`
}

// Public strips the password hash for API responses.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// Session binds an opaque token to a user until the expiry unix timestamp.
type Session struct {
	Token   string `json:"token"`
	UserID  int    `json:"user_id"`
	Expires int64  `json:"expires"`
}

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Product struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	CategoryID  int      `json:"category_id"`
	Stock       int      `json:"stock"`
	Likes       int      `json:"likes"`
	Views       int      `json:"views"`
	CreatedAt   int64    `json:"created_at"`
	Images      []string `json:"images"`
}

type Comment struct {
	ID        int    `json:"id"`
	ProductID int    `json:"product_id"`
	UserID    int    `json:"user_id"`
	Content   string `json:"content"`
	Rating    int    `json:"rating"`
	CreatedAt int64  `json:"created_at"`
}

// Like is keyed by (user, product); at most one record per pair.
type Like struct {
	UserID    int   `json:"user_id"`
	ProductID int   `json:"product_id"`
	CreatedAt int64 `json:"created_at"`
}

// OrderItem quantities are fixed at order time, never re-derived later.
type OrderItem struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

type Order struct {
	ID        int            `json:"id"`
	UserID    int            `json:"user_id"`
	Status    string         `json:"status"`
	Items     []OrderItem    `json:"items"`
	Total     float64        `json:"total"`
	Address   map[string]any `json:"address"`
	CreatedAt int64          `json:"created_at"`
}

// Stats holds the three ranking lists. Best sellers carry one entry per unit
// sold (duplicates are the weighting) and cap at 100; new arrivals cap at 20.
type Stats struct {
	BestSellers []int `json:"best_sellers"`
	NewArrivals []int `json:"new_arrivals"`
	Featured    []int `json:"featured"`
}
