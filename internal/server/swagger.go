package server

//go:generate swag init -g internal/server/server.go -o internal/server/docs

// @title mdinject API
// @version 0.1
// @description Store host pages and inject rendered Markdown into their elements.
// @contact.name mdinject maintainers
// @contact.url https://github.com/raysh454/mdinject
// @BasePath /
