package application

import "github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/reservation"

// Role は認証済み利用者の役割
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleOfficer Role = "officer"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCitizen || r == RoleOfficer || r == RoleAdmin
}

// Actor は操作を行う利用者。住民の場合 ID は住民IDと一致する
type Actor struct {
	ID   string
	Role Role
}

// IsStaff は窓口職員か管理者かを返す
func (a Actor) IsStaff() bool {
	return a.Role == RoleOfficer || a.Role == RoleAdmin
}

// CanAccess は予約の参照と取消ができるかを返す
func (a Actor) CanAccess(r *reservation.Reservation) bool {
	return a.IsStaff() || r.IsOwnedBy(a.ID)
}
