package main

import (
	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/routes"
	"github.com/cppla/yatube/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	db := config.InitDatabase(&models.User{}, &models.Group{}, &models.Post{}, &models.Comment{})

	r := routes.SetupRouter(db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.App.Port)
	if err := utils.GraceServer(":"+cfg.App.Port, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
