package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/NgumtsaB/web-programming-project/internal/store"
	"github.com/NgumtsaB/web-programming-project/pkg/domain"
)

const newArrivalsCap = 20

// ListCategories returns all categories.
func (a *App) ListCategories() ([]domain.Category, error) {
	doc, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	return doc.Categories, nil
}

// CreateCategory adds a category, deriving the slug from the name when absent.
func (a *App) CreateCategory(name, slug string) (domain.Category, error) {
	if name == "" {
		return domain.Category{}, fmt.Errorf("name: %w", ErrMissingFields)
	}
	if slug == "" {
		slug = strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	}
	doc, err := a.store.Load()
	if err != nil {
		return domain.Category{}, err
	}
	cat := domain.Category{
		ID:   store.NextID(doc.Categories, func(c domain.Category) int { return c.ID }),
		Name: name,
		Slug: slug,
	}
	doc.Categories = append(doc.Categories, cat)
	if err := a.store.Save(doc); err != nil {
		return domain.Category{}, fmt.Errorf("save category: %w", err)
	}
	return cat, nil
}

// CategoryPatch lists the mutable category fields; nil means "leave as is".
type CategoryPatch struct {
	Name *string
	Slug *string
}

// UpdateCategory applies a whitelist patch to an existing category.
func (a *App) UpdateCategory(id int, patch CategoryPatch) (domain.Category, error) {
	doc, err := a.store.Load()
	if err != nil {
		return domain.Category{}, err
	}
	for i := range doc.Categories {
		if doc.Categories[i].ID != id {
			continue
		}
		if patch.Name != nil {
			doc.Categories[i].Name = *patch.Name
		}
		if patch.Slug != nil {
			doc.Categories[i].Slug = *patch.Slug
		}
		if err := a.store.Save(doc); err != nil {
			return domain.Category{}, fmt.Errorf("save category: %w", err)
		}
		return doc.Categories[i], nil
	}
	return domain.Category{}, ErrCategoryNotFound
}

// DeleteCategory removes a category. Removing an unknown id is a no-op.
func (a *App) DeleteCategory(id int) error {
	doc, err := a.store.Load()
	if err != nil {
		return err
	}
	kept := doc.Categories[:0]
	for _, c := range doc.Categories {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	doc.Categories = kept
	if err := a.store.Save(doc); err != nil {
		return fmt.Errorf("save categories: %w", err)
	}
	return nil
}

// ProductQuery filters and orders the catalogue listing.
type ProductQuery struct {
	CategoryID int    // 0 means all categories
	Q          string // substring match on title+description
	Sort       string // "new" or "best"
}

// ListProducts returns catalogue entries matching the query.
func (a *App) ListProducts(q ProductQuery) ([]domain.Product, error) {
	doc, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	prods := doc.Catalogue
	if q.CategoryID != 0 {
		filtered := make([]domain.Product, 0, len(prods))
		for _, p := range prods {
			if p.CategoryID == q.CategoryID {
				filtered = append(filtered, p)
			}
		}
		prods = filtered
	}
	if q.Q != "" {
		needle := strings.ToLower(q.Q)
		filtered := make([]domain.Product, 0, len(prods))
		for _, p := range prods {
			haystack := strings.ToLower(p.Title) + strings.ToLower(p.Description)
			if strings.Contains(haystack, needle) {
				filtered = append(filtered, p)
			}
		}
		prods = filtered
	}
	switch q.Sort {
	case "new":
		sorted := append([]domain.Product(nil), prods...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt > sorted[j].CreatedAt
		})
		prods = sorted
	case "best":
		rank := make(map[int]int, len(doc.Stats.BestSellers))
		for i, id := range doc.Stats.BestSellers {
			if _, seen := rank[id]; !seen {
				rank[id] = i
			}
		}
		sorted := append([]domain.Product(nil), prods...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return bestRank(rank, sorted[i].ID) < bestRank(rank, sorted[j].ID)
		})
		prods = sorted
	}
	return prods, nil
}

func bestRank(rank map[int]int, id int) int {
	if r, ok := rank[id]; ok {
		return r
	}
	return 1 << 30
}

// GetProduct returns one catalogue entry.
func (a *App) GetProduct(id int) (domain.Product, error) {
	doc, err := a.store.Load()
	if err != nil {
		return domain.Product{}, err
	}
	for _, p := range doc.Catalogue {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
}

// ProductInput carries the create-product payload.
type ProductInput struct {
	Title       string
	Description string
	Price       float64
	CategoryID  int
	Stock       int
	Images      []string
}

// CreateProduct adds a catalogue entry and records it in new arrivals.
func (a *App) CreateProduct(in ProductInput) (domain.Product, error) {
	if in.Title == "" {
		return domain.Product{}, fmt.Errorf("title: %w", ErrMissingFields)
	}
	if in.Price < 0 {
		return domain.Product{}, fmt.Errorf("price must be non-negative: %w", ErrInvalidInput)
	}
	if in.Stock < 0 {
		return domain.Product{}, fmt.Errorf("stock must be non-negative: %w", ErrInvalidInput)
	}
	images := in.Images
	if images == nil {
		images = []string{}
	}
	doc, err := a.store.Load()
	if err != nil {
		return domain.Product{}, err
	}
	product := domain.Product{
		ID:          store.NextID(doc.Catalogue, func(p domain.Product) int { return p.ID }),
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		CategoryID:  in.CategoryID,
		Stock:       in.Stock,
		CreatedAt:   time.Now().Unix(),
		Images:      images,
	}
	doc.Catalogue = append(doc.Catalogue, product)
	doc.Stats.NewArrivals = append([]int{product.ID}, doc.Stats.NewArrivals...)
	if len(doc.Stats.NewArrivals) > newArrivalsCap {
		doc.Stats.NewArrivals = doc.Stats.NewArrivals[:newArrivalsCap]
	}
	if err := a.store.Save(doc); err != nil {
		return domain.Product{}, fmt.Errorf("save product: %w", err)
	}
	return product, nil
}

// ProductPatch lists the mutable product fields; nil means "leave as is".
type ProductPatch struct {
	Title       *string
	Description *string
	Price       *float64
	CategoryID  *int
	Stock       *int
	Likes       *int
	Views       *int
	Images      *[]string
}

// UpdateProduct applies a whitelist patch to an existing product.
func (a *App) UpdateProduct(id int, patch ProductPatch) (domain.Product, error) {
	doc, err := a.store.Load()
	if err != nil {
		return domain.Product{}, err
	}
	for i := range doc.Catalogue {
		if doc.Catalogue[i].ID != id {
			continue
		}
		p := &doc.Catalogue[i]
		if patch.Title != nil {
			p.Title = *patch.Title
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.Price != nil {
			p.Price = *patch.Price
		}
		if patch.CategoryID != nil {
			p.CategoryID = *patch.CategoryID
		}
		if patch.Stock != nil {
			p.Stock = *patch.Stock
		}
		if patch.Likes != nil {
			p.Likes = *patch.Likes
		}
		if patch.Views != nil {
			p.Views = *patch.Views
		}
		if patch.Images != nil {
			p.Images = *patch.Images
		}
		if err := a.store.Save(doc); err != nil {
			return domain.Product{}, fmt.Errorf("save product: %w", err)
		}
		return *p, nil
	}
	return domain.Product{}, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
}

// DeleteProduct removes a product and cascades: its comments and likes go
// with it, and its id is stripped from all three stats lists, all in one
// save so the document never references a missing product.
func (a *App) DeleteProduct(id int) error {
	doc, err := a.store.Load()
	if err != nil {
		return err
	}
	catalogue := doc.Catalogue[:0]
	for _, p := range doc.Catalogue {
		if p.ID != id {
			catalogue = append(catalogue, p)
		}
	}
	doc.Catalogue = catalogue

	comments := doc.Comments[:0]
	for _, c := range doc.Comments {
		if c.ProductID != id {
			comments = append(comments, c)
		}
	}
	doc.Comments = comments

	likes := doc.Likes[:0]
	for _, l := range doc.Likes {
		if l.ProductID != id {
			likes = append(likes, l)
		}
	}
	doc.Likes = likes

	doc.Stats.BestSellers = removeID(doc.Stats.BestSellers, id)
	doc.Stats.NewArrivals = removeID(doc.Stats.NewArrivals, id)
	doc.Stats.Featured = removeID(doc.Stats.Featured, id)

	if err := a.store.Save(doc); err != nil {
		return fmt.Errorf("save catalogue: %w", err)
	}
	return nil
}

func removeID(ids []int, id int) []int {
	kept := ids[:0]
	for _, v := range ids {
		if v != id {
			kept = append(kept, v)
		}
	}
	return kept
}

// ToggleLike flips the (user, product) like. It keeps the product's
// cached counter in step with the like records, clamped at zero.
func (a *App) ToggleLike(userID, productID int) (bool, error) {
	doc, err := a.store.Load()
	if err != nil {
		return false, err
	}
	liked := false
	for _, l := range doc.Likes {
		if l.UserID == userID && l.ProductID == productID {
			liked = true
			break
		}
	}
	if liked {
		kept := doc.Likes[:0]
		for _, l := range doc.Likes {
			if !(l.UserID == userID && l.ProductID == productID) {
				kept = append(kept, l)
			}
		}
		doc.Likes = kept
		for i := range doc.Catalogue {
			if doc.Catalogue[i].ID == productID && doc.Catalogue[i].Likes > 0 {
				doc.Catalogue[i].Likes--
			}
		}
	} else {
		doc.Likes = append(doc.Likes, domain.Like{
			UserID:    userID,
			ProductID: productID,
			CreatedAt: time.Now().Unix(),
		})
		for i := range doc.Catalogue {
			if doc.Catalogue[i].ID == productID {
				doc.Catalogue[i].Likes++
			}
		}
	}
	if err := a.store.Save(doc); err != nil {
		return false, fmt.Errorf("save likes: %w", err)
	}
	return !liked, nil
}

// CreateComment records a comment on a product.
func (a *App) CreateComment(userID, productID int, content string, rating int) (domain.Comment, error) {
	if content == "" {
		return domain.Comment{}, ErrMissingContent
	}
	doc, err := a.store.Load()
	if err != nil {
		return domain.Comment{}, err
	}
	comment := domain.Comment{
		ID:        store.NextID(doc.Comments, func(c domain.Comment) int { return c.ID }),
		ProductID: productID,
		UserID:    userID,
		Content:   content,
		Rating:    rating,
		CreatedAt: time.Now().Unix(),
	}
	doc.Comments = append(doc.Comments, comment)
	if err := a.store.Save(doc); err != nil {
		return domain.Comment{}, fmt.Errorf("save comment: %w", err)
	}
	return comment, nil
}

// ListComments returns all comments for a product.
func (a *App) ListComments(productID int) ([]domain.Comment, error) {
	doc, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Comment, 0)
	for _, c := range doc.Comments {
		if c.ProductID == productID {
			out = append(out, c)
		}
	}
	return out, nil
}

// StatsView resolves the ranking id lists to product records.
type StatsView struct {
	BestSellers []domain.Product `json:"best_sellers"`
	NewArrivals []domain.Product `json:"new_arrivals"`
	Featured    []domain.Product `json:"featured"`
}

const statsViewCap = 10

// Stats returns the top products per ranking list, skipping dangling ids.
func (a *App) Stats() (StatsView, error) {
	doc, err := a.store.Load()
	if err != nil {
		return StatsView{}, err
	}
	byID := make(map[int]domain.Product, len(doc.Catalogue))
	for _, p := range doc.Catalogue {
		byID[p.ID] = p
	}
	resolve := func(ids []int) []domain.Product {
		out := make([]domain.Product, 0, statsViewCap)
		for _, id := range ids {
			if len(out) == statsViewCap {
				break
			}
			if p, ok := byID[id]; ok {
				out = append(out, p)
			}
		}
		return out
	}
	return StatsView{
		BestSellers: resolve(doc.Stats.BestSellers),
		NewArrivals: resolve(doc.Stats.NewArrivals),
		Featured:    resolve(doc.Stats.Featured),
	}, nil
}
