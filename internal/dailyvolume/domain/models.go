package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// DailyVolume is one metered reading for a customer site.
type DailyVolume struct {
	ID               snowflake.ID      `gorm:"primaryKey" json:"id"`
	CustomerID       snowflake.ID      `gorm:"not null;index:idx_daily_volumes_site_created,priority:1" json:"customer_id"`
	CustomerSiteID   snowflake.ID      `gorm:"not null;index:idx_daily_volumes_site_created,priority:2" json:"customer_site_id"`
	Volume           float64           `gorm:"not null" json:"volume"`
	InletPressure    float64           `gorm:"not null;default:0" json:"inlet_pressure"`
	OutletPressure   float64           `gorm:"not null;default:0" json:"outlet_pressure"`
	Allocation       float64           `gorm:"not null;default:0" json:"allocation"`
	Nomination       float64           `gorm:"not null;default:0" json:"nomination"`
	Status           int               `gorm:"not null;default:1" json:"status"`
	Remark           string            `gorm:"column:remark" json:"remark,omitempty"`
	CreatedBy        int64             `gorm:"not null;default:0" json:"created_by"`
	ApprovedBy       int64             `gorm:"not null;default:0" json:"approved_by"`
	FormFieldAnswers datatypes.JSONMap `gorm:"type:jsonb" json:"form_field_answers,omitempty"`
	CreatedAt        time.Time         `gorm:"not null;index:idx_daily_volumes_site_created,priority:3" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"not null" json:"updated_at"`
}

func (DailyVolume) TableName() string { return "daily_volumes" }
