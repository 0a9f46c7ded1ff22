package models

import (
	"database/sql/driver"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleDoctor  Role = "doctor"
	RoleNurse   Role = "nurse"
	RolePatient Role = "patient"
)

// stored values of usuarios.tipo_usuario
var roleColumn = map[Role]string{
	RoleDoctor:  "medico",
	RoleNurse:   "enfermero",
	RolePatient: "paciente",
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleColumn[r]
	return ok
}

// Value implements driver.Valuer.
func (r Role) Value() (driver.Value, error) {
	v, ok := roleColumn[r]
	if !ok {
		return nil, fmt.Errorf("unknown role %q", string(r))
	}
	return v, nil
}

// Scan implements sql.Scanner.
func (r *Role) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("cannot scan %T into Role", src)
	}
	for role, column := range roleColumn {
		if s == column || s == string(role) {
			*r = role
			return nil
		}
	}
	return fmt.Errorf("unknown role %q", s)
}

// User represents a user in the system
type User struct {
	BaseModel
	Username     string `gorm:"column:nombre_usuario;uniqueIndex;size:100;not null" json:"username"`
	PasswordHash string `gorm:"column:password_hash;size:255;not null" json:"-"` // Never send password in JSON
	Role         Role   `gorm:"column:tipo_usuario;type:varchar(20);not null" json:"role"`
}

// TableName maps User onto the usuarios table.
func (User) TableName() string {
	return "usuarios"
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
	}
}
