package handlers

import (
	"stockroom/internal/repos"
	"stockroom/internal/services"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	ProductHandler *ProductHandler
	AuthHandler    *AuthHandler
}

func NewDeps(db *sqlx.DB, auth *services.AuthService) *Deps {
	prodRepo := repos.NewProductRepo(db)
	return &Deps{
		ProductHandler: &ProductHandler{Products: prodRepo, Auth: auth},
		AuthHandler:    &AuthHandler{Auth: auth},
	}
}
