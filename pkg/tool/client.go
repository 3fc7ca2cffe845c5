package tool

import (
	"github.com/m-hoshino/libretto/pkg/adapter"
	"github.com/m-hoshino/libretto/pkg/repository"
	"github.com/m-hoshino/libretto/pkg/service/catalog"
	"github.com/m-hoshino/libretto/pkg/service/index"
)

// Client contains shared resources that tools and commands use
type Client struct {
	Repo    repository.Repository
	Catalog *catalog.Service
	Index   *index.Index
	Gemini  adapter.Gemini
}
