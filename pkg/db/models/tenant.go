package models

// TenantModels lists every table created in a church record database.
func TenantModels() []any {
	return []any{&BaptismRecord{}, &MarriageRecord{}, &FuneralRecord{}, &OCRJob{}}
}

// PlatformModels lists the tables of the platform database. Production
// schemas come from goose migrations; tests migrate with these.
func PlatformModels() []any {
	return []any{&Church{}, &User{}}
}
