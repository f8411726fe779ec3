package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "Stable Genius server URL")
	agent := flag.String("agent", "", "Agent to talk to (defaults to first registered)")
	user := flag.String("user", "cli-user", "Sender name for chat")
	flag.Parse()

	fmt.Println("Stable Genius CLI Chat")
	fmt.Printf("Server: %s | User: %s\n", *server, *user)
	fmt.Println("Type 'exit' or 'quit' to leave. Use @AgentName to switch agents.")
	fmt.Println("Commands: /agents, /psyche, /reset")
	fmt.Println("---")

	current := *agent
	agents := fetchAgents(*server)
	if current == "" && len(agents) > 0 {
		current = agents[0]
	}
	if current != "" {
		fmt.Printf("Talking to \033[36m%s\033[0m\n", current)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Bye!")
			return
		}
		if input == "/agents" {
			fetchAgents(*server)
			continue
		}
		if input == "/psyche" {
			fetchPsyche(*server, current)
			continue
		}
		if input == "/reset" {
			resetAgent(*server, current)
			continue
		}
		if strings.HasPrefix(input, "@") {
			name, rest, _ := strings.Cut(input[1:], " ")
			current = name
			fmt.Printf("Talking to \033[36m%s\033[0m\n", current)
			input = strings.TrimSpace(rest)
			if input == "" {
				continue
			}
		}
		if current == "" {
			printError("No agent selected. Use @AgentName or create one first.")
			continue
		}

		sendMessage(*server, current, *user, input)
	}
}

func fetchAgents(server string) []string {
	resp, err := http.Get(server + "/api/agents")
	if err != nil {
		printError("Failed to fetch agents: %v", err)
		return nil
	}
	defer resp.Body.Close()

	var agents []string
	if err := json.NewDecoder(resp.Body).Decode(&agents); err != nil {
		printError("Failed to parse agents: %v", err)
		return nil
	}
	if len(agents) == 0 {
		fmt.Println("No agents registered yet.")
		return nil
	}
	fmt.Println("Available agents:")
	for _, a := range agents {
		fmt.Printf("  @%s\n", a)
	}
	return agents
}

func fetchPsyche(server, agent string) {
	if agent == "" {
		printError("No agent selected.")
		return
	}
	resp, err := http.Get(server + "/api/agents/" + agent)
	if err != nil {
		printError("Failed to fetch psyche: %v", err)
		return
	}
	defer resp.Body.Close()

	var psy struct {
		Name                  string   `json:"name"`
		Personality           string   `json:"personality"`
		Goal                  string   `json:"goal"`
		ActiveTactic          string   `json:"active_tactic"`
		TensionLevel          int      `json:"tension_level"`
		TensionInterpretation string   `json:"tension_interpretation"`
		RecentEmotions        []string `json:"recent_emotions"`
		Memories              []any    `json:"memories"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&psy); err != nil {
		printError("Failed to parse psyche: %v", err)
		return
	}
	fmt.Printf("\033[36m%s\033[0m (%s)\n", psy.Name, psy.Personality)
	fmt.Printf("  Goal:    %s\n", psy.Goal)
	fmt.Printf("  Tactic:  %s\n", psy.ActiveTactic)
	fmt.Printf("  Tension: %d/100", psy.TensionLevel)
	if psy.TensionInterpretation != "" {
		fmt.Printf(" — %s", psy.TensionInterpretation)
	}
	fmt.Println()
	if len(psy.RecentEmotions) > 0 {
		fmt.Printf("  Felt:    %s\n", strings.Join(psy.RecentEmotions, ", "))
	}
	fmt.Printf("  Memories: %d\n", len(psy.Memories))
}

func resetAgent(server, agent string) {
	if agent == "" {
		printError("No agent selected.")
		return
	}
	resp, err := http.Post(server+"/api/agents/"+agent+"/reset", "application/json", nil)
	if err != nil {
		printError("Reset failed: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		printError("Server error (%d): %s", resp.StatusCode, string(data))
		return
	}
	fmt.Printf("\033[36m%s\033[0m forgot everything.\n", agent)
}

func sendMessage(server, agent, user, content string) {
	body, _ := json.Marshal(map[string]string{
		"message": content,
		"sender":  user,
	})

	client := &http.Client{Timeout: 65 * time.Second}
	resp, err := client.Post(
		server+"/api/agents/"+agent+"/message",
		"application/json",
		bytes.NewReader(body),
	)
	if err != nil {
		printError("Request failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		printError("Server error (%d): %s", resp.StatusCode, string(data))
		return
	}

	var turn struct {
		Speech          string            `json:"speech"`
		Errors          map[string]string `json:"errors"`
		EmotionAnalysis *struct {
			Emotion string `json:"emotion"`
		} `json:"emotion_analysis"`
		TensionAnalysis *struct {
			TensionLevel int `json:"tension_level"`
		} `json:"tension_analysis"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&turn); err != nil {
		printError("Failed to parse response: %v", err)
		return
	}

	fmt.Printf("\033[36m[%s]\033[0m %s\n", agent, turn.Speech)
	if turn.EmotionAnalysis != nil && turn.TensionAnalysis != nil {
		fmt.Printf("\033[90m  feeling %s, tension %d/100\033[0m\n",
			turn.EmotionAnalysis.Emotion, turn.TensionAnalysis.TensionLevel)
	}
	for stage, msg := range turn.Errors {
		fmt.Printf("\033[33m  (%s stage fell back: %s)\033[0m\n", stage, msg)
	}
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "\033[31m"+format+"\033[0m\n", args...)
}
