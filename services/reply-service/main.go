package main

import "github.com/leadcontact/outreach/services/reply-service/internal/app"

func main() {
	app.Execute()
}
