package auth

// Claims es lo que el core sabe del actor autenticado.
type Claims struct {
	UserID   string
	Username string
	Email    string
}
