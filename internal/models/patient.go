package models

// Patient is an entry in the patient registry. Staff can register patients
// without an account, so UserID is optional.
type Patient struct {
	BaseModel
	UserID *string `gorm:"column:usuario_id;size:36;uniqueIndex" json:"userId,omitempty"`
	Name   string  `gorm:"column:nombre;size:255;not null" json:"name"`
	Cause  string  `gorm:"column:causa;type:text" json:"cause,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName maps Patient onto the pacientes table.
func (Patient) TableName() string {
	return "pacientes"
}

// OwnedBy reports whether the patient record belongs to the given user.
func (p *Patient) OwnedBy(userID string) bool {
	return p.UserID != nil && *p.UserID == userID
}
