package model

// UserRole 由身份服务签发在 JWT 中，本服务只做读取
type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

func (r UserRole) CanAuthor() bool {
	return r == Teacher || r == Admin
}
