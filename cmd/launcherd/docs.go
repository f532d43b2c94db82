package main

// General API documentation for swaggo. Run `swag init -g cmd/launcherd/docs.go` to regenerate docs.
//
// @title           launcherd API
// @version         1.0
// @description     HTTP API for launching and supervising external AI tool processes.
//
// @contact.name   launcherd maintainers
// @contact.url    https://github.com/your-org/launcherd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
