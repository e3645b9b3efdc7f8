package banner

import (
	"fmt"

	"memoryecho/pkg/config"
)

const banner = `
███╗   ███╗███████╗███╗   ███╗ ██████╗ ██████╗ ██╗   ██╗███████╗ ██████╗██╗  ██╗ ██████╗
████╗ ████║██╔════╝████╗ ████║██╔═══██╗██╔══██╗╚██╗ ██╔╝██╔════╝██╔════╝██║  ██║██╔═══██╗
██╔████╔██║█████╗  ██╔████╔██║██║   ██║██████╔╝ ╚████╔╝ █████╗  ██║     ███████║██║   ██║
██║╚██╔╝██║██╔══╝  ██║╚██╔╝██║██║   ██║██╔══██╗  ╚██╔╝  ██╔══╝  ██║     ██╔══██║██║   ██║
██║ ╚═╝ ██║███████╗██║ ╚═╝ ██║╚██████╔╝██║  ██║   ██║   ███████╗╚██████╗██║  ██║╚██████╔╝
╚═╝     ╚═╝╚══════╝╚═╝     ╚═╝ ╚═════╝ ╚═╝  ╚═╝   ╚═╝   ╚══════╝ ╚═════╝╚═╝  ╚═╝ ╚═════╝
`

// PrintWithEff prints the startup banner using the effective config.
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:    %s\n", eff.Addr)
	fmt.Printf("DB Path:   %s\n", eff.DBPath)
	if version != "" {
		fmt.Printf("Version:   %s\n", version)
	}
	provider := eff.Config.Responder.Provider
	if provider == "" {
		provider = "scripted"
	}
	fmt.Printf("Responder: %s\n", provider)
	fmt.Printf("Config sources: %s\n", eff.Source)
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /v1/roles                      - Create a persona")
	fmt.Println("POST /v1/roles/{id}/knowledge       - Add memories (single or batch)")
	fmt.Println("POST /v1/threads                    - Open a conversation thread")
	fmt.Println("POST /v1/threads/{id}/messages      - Send a message, get the AI reply")
	fmt.Println("GET  /v1/threads?role=<id>          - List a role's threads")
	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl -X POST 'http://localhost%s/v1/threads' -d '{\"role_id\":\"role-default\"}'\n", eff.Addr)
	fmt.Printf("curl -X POST 'http://localhost%s/v1/threads/<id>/messages' -d '{\"content\":\"hello\"}'\n", eff.Addr)
}
