package dto

type ProductCountResponse struct {
	Product string `json:"product"`
	Count   int    `json:"count"`
}

type ProductCountDetailsResponse struct {
	ProductName string `json:"product_name"`
	BrandName   string `json:"brand_name"`
	Count       int    `json:"count"`
}

type ProductDetailsResponse struct {
	ProductID   int    `json:"product_id"`
	ProductName string `json:"product_name"`
	Brand       string `json:"brand"`
	MfgDate     string `json:"mfg_date"`
	UseBefore   string `json:"use_before"`
	MRP         string `json:"mrp"`
	NetWeight   string `json:"net_weight"`
}
