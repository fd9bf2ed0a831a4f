package models

import "strings"

// Address 收货地址
type Address struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	ProvinceName  string `json:"province_name"`
	CityName      string `json:"city_name"`
	DistrictName  string `json:"district_name"`
	DetailAddress string `json:"detail_address"`
	IsDefault     bool   `json:"is_default"`
}

// FullAddress 省市区 + 详细地址
func (a *Address) FullAddress() string {
	if a == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range []string{a.ProvinceName, a.CityName, a.DistrictName, a.DetailAddress} {
		b.WriteString(strings.TrimSpace(part))
	}
	return b.String()
}
