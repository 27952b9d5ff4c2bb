package models

// About represents a developer bio shown on the about pages
type About struct {
	ID          int64  `gorm:"primaryKey;autoIncrement;column:id"`
	UserID      int64  `gorm:"not null;column:user_id"`
	Description string `gorm:"type:text;not null;default:'';column:description"`
	Photo       string `gorm:"type:varchar(255);not null;default:'';column:photo"`
	Role        string `gorm:"type:varchar(150);not null;default:'';column:role"`
	City        string `gorm:"type:varchar(50);not null;default:'';column:city"`

	User     *User     `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Contacts []Contact `gorm:"foreignKey:AboutID;references:ID"`
}

// TableName specifies the table name for About
func (About) TableName() string {
	return "inklet_about"
}

// Tech represents a technology entry on the tech page, ordered by Number
type Tech struct {
	ID          int64  `gorm:"primaryKey;autoIncrement;column:id"`
	Title       string `gorm:"type:varchar(200);not null;column:title"`
	Description string `gorm:"type:text;not null;default:'';column:description"`
	Number      int    `gorm:"not null;uniqueIndex:inklet_tech_ux1;column:number"`
	IsStudied   bool   `gorm:"not null;default:false;column:is_studied"`
}

// TableName specifies the table name for Tech
func (Tech) TableName() string {
	return "inklet_tech"
}

// Contact represents an external link attached to a developer bio
type Contact struct {
	ID      int64  `gorm:"primaryKey;autoIncrement;column:id"`
	AboutID int64  `gorm:"not null;column:about_id"`
	Title   string `gorm:"type:varchar(50);not null;default:'';column:title"`
	Link    string `gorm:"type:varchar(200);not null;column:link"`

	About *About `gorm:"foreignKey:AboutID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Contact
func (Contact) TableName() string {
	return "inklet_contacts"
}
