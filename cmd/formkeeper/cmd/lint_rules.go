package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/formkeeper/formkeeper/internal/core/db"
	"github.com/formkeeper/formkeeper/internal/core/store"
	"github.com/formkeeper/formkeeper/internal/logic"
)

var lintRulesCmd = &cobra.Command{
	Use:   "lint-rules",
	Short: "Validate every persisted logic rule",
	Long:  `Checks all stored condition trees for structural problems (unknown comparisons, missing fields, depth) and prints path-annotated errors. Exits non-zero when any rule is invalid.`,
	RunE:  runLintRules,
}

func init() {
	rootCmd.AddCommand(lintRulesCmd)
}

func runLintRules(cmd *cobra.Command, args []string) error {
	cfg, err := loadEffectiveConfig(nil)
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	queries, err := db.LoadQueries(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}

	rules, err := store.NewLogicStore(queries).ListAll()
	if err != nil {
		return err
	}

	invalid := 0
	for _, rule := range rules {
		problems := logic.ValidateJSON(rule.Condition)
		if len(problems) == 0 {
			continue
		}
		invalid++
		fmt.Printf("rule %s (survey %s, action %s):\n", rule.ID, rule.SurveyID, rule.Action)
		for _, p := range problems {
			fmt.Printf("  %s\n", p)
		}
	}

	fmt.Printf("checked %d rules, %d invalid\n", len(rules), invalid)
	if invalid > 0 {
		return fmt.Errorf("%d invalid rules", invalid)
	}
	return nil
}
