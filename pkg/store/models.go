package store

// Run is the persisted form of a generated run.
type Run struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	CreatedAt    string `gorm:"column:created_at;type:text;not null;autoCreateTime:false"`
	Status       string `gorm:"type:text;not null"`
	TotalRecords int    `gorm:"not null"`
	OKRecords    int    `gorm:"column:ok_records;not null"`
	WarnRecords  int    `gorm:"not null"`
	FailRecords  int    `gorm:"not null"`

	Records []Record `gorm:"foreignKey:RunID"`
}

// Record is the persisted form of a single reading.
type Record struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"`
	RunID     uint    `gorm:"not null;index"`
	SourceID  string  `gorm:"column:source_id;type:text;not null"`
	Value     float64 `gorm:"not null"`
	Status    string  `gorm:"type:text;not null"`
	CreatedAt string  `gorm:"column:created_at;type:text;not null;autoCreateTime:false"`
}
