package cli

import (
	"fmt"
	"strings"
	"time"

	prompt "github.com/c-bata/go-prompt"

	"github.com/engramdb/engram/internal/config"
	"github.com/engramdb/engram/internal/memory"
)

const (
	Version = "0.1.0"

	colorReset = "\033[0m"
	colorCyan  = "\033[36m"
	colorGray  = "\033[90m"
)

// Run opens the memory system and starts the interactive shell. It
// returns after the user exits, with everything flushed and closed.
func Run(cfg *config.Config) error {
	printWelcome()

	sys, err := memory.Open(memory.Options{
		Root:          cfg.Store.Root,
		DrainInterval: time.Duration(cfg.Indexer.DrainIntervalMs) * time.Millisecond,
		Catalog:       cfg.Catalog.Enabled,
	})
	if err != nil {
		return fmt.Errorf("failed to open memory store: %w", err)
	}
	defer sys.Close()

	fmt.Printf("%sStore: %s (%d memories loaded)%s\n\n",
		colorGray, cfg.Store.Root, sys.Store().Len(), colorReset)

	cmds := NewCommands(sys)

	p := prompt.New(
		func(in string) { execute(cmds, in) },
		completer,
		prompt.OptionTitle("engram"),
		prompt.OptionPrefix("engram> "),
		prompt.OptionPrefixTextColor(prompt.Green),
		prompt.OptionSetExitCheckerOnInput(isExitCommand),
	)
	p.Run()

	fmt.Printf("%sGoodbye! 👋%s\n", colorCyan, colorReset)
	return nil
}

// printWelcome prints welcome message
func printWelcome() {
	fmt.Printf("\n%s🧠 Engram v%s%s - File-backed memory store\n", colorCyan, Version, colorReset)
	fmt.Printf("%sType /help for help, /exit to quit%s\n", colorGray, colorReset)
}

// execute dispatches one line of input. Plain text without a leading
// slash is treated as a recall query.
func execute(cmds *Commands, in string) {
	input := strings.TrimSpace(in)
	if input == "" || isExitCommand(input, true) {
		return
	}

	if strings.HasPrefix(input, "/") {
		handled, out := cmds.HandleCommand(input)
		if !handled {
			fmt.Printf("❓ Unknown command: %s\nType /help for available commands\n\n", input)
			return
		}
		fmt.Println(out)
		fmt.Println()
		return
	}

	_, out := cmds.HandleCommand("/recall " + input)
	fmt.Println(out)
	fmt.Println()
}

// isExitCommand tells the prompt loop when to stop.
func isExitCommand(in string, breakline bool) bool {
	if !breakline {
		return false
	}
	switch strings.TrimSpace(strings.ToLower(in)) {
	case "/exit", "/quit", "/q":
		return true
	}
	return false
}

// completer suggests slash commands for the word under the cursor.
func completer(d prompt.Document) []prompt.Suggest {
	if !strings.HasPrefix(d.TextBeforeCursor(), "/") {
		return nil
	}
	return prompt.FilterHasPrefix(commandSuggestions(), d.GetWordBeforeCursor(), true)
}

// commandSuggestions lists every slash command for completion.
func commandSuggestions() []prompt.Suggest {
	return []prompt.Suggest{
		{Text: "/remember", Description: "Save a memory"},
		{Text: "/recall", Description: "Full-text search"},
		{Text: "/search", Description: "Full-text search"},
		{Text: "/tags", Description: "Find memories by tags"},
		{Text: "/important", Description: "Find memories by importance floor"},
		{Text: "/list", Description: "Show newest memories"},
		{Text: "/show", Description: "Print one memory"},
		{Text: "/code", Description: "Extract code blocks from a memory"},
		{Text: "/stats", Description: "Show store statistics"},
		{Text: "/verify", Description: "Check store consistency"},
		{Text: "/reindex", Description: "Rebuild the indices"},
		{Text: "/help", Description: "Show help"},
		{Text: "/exit", Description: "Exit"},
	}
}
