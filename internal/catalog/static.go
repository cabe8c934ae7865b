package catalog

import "context"

// StaticSource отдаёт зашитый набор товаров. Используется для демонстрации
// и как источник по умолчанию, когда внешнее хранилище не настроено.
type StaticSource struct {
	products []Product
}

func NewStaticSource(products []Product) *StaticSource {
	return &StaticSource{products: cloneProducts(products)}
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) Fetch(ctx context.Context) ([]Product, error) {
	return cloneProducts(s.products), nil
}

// DemoProducts демонстрационный каталог бутика.
func DemoProducts() []Product {
	return []Product{
		{Name: "Robe Élégante Africaine", Price: 250000, Stock: 5, Category: "Robes"},
		{Name: "Robe de Soirée", Price: 350000, Stock: 3, Category: "Robes"},
		{Name: "Robe Traditionnelle", Price: 180000, Stock: 8, Category: "Robes"},
		{Name: "Chaussures Talons", Price: 120000, Stock: 10, Category: "Chaussures"},
		{Name: "Sac à Main Cuir", Price: 95000, Stock: 6, Category: "Sacs"},
		{Name: "Bijoux Traditionnels", Price: 75000, Stock: 12, Category: "Bijoux"},
		{Name: "Chemise Femme", Price: 85000, Stock: 15, Category: "Tops"},
		{Name: "Pantalon Élégant", Price: 140000, Stock: 7, Category: "Pantalons"},
	}
}
