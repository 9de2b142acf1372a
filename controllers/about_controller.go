package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/middleware"
)

// AboutController serves the static about pages.
type AboutController struct{}

// NewAboutController creates an AboutController.
func NewAboutController() *AboutController {
	return &AboutController{}
}

// Author renders the page about the author.
func (a *AboutController) Author(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "about_author.html", gin.H{"user": middleware.CurrentUser(ctx)})
}

// Tech renders the page about the technology used.
func (a *AboutController) Tech(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "about_tech.html", gin.H{"user": middleware.CurrentUser(ctx)})
}
