package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/maykaila/memora/internal/api"
	"github.com/maykaila/memora/internal/session"
)

var classesCmd = &cobra.Command{
	Use:     "classes",
	Aliases: []string{"class"},
	Short:   "Run classes (teachers) or join them (students)",
	Long: `Teachers create classes, assign decks and see who joined. Students join a
class with the code their teacher shares.

Examples:
  memora classes create --name "Biology 101"
  memora classes assign <class-id> <deck-id>
  memora classes join ABC123`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var classesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List classes you teach or have joined",
	Args:  cobra.NoArgs,
	RunE:  signedIn(runClassesList),
}

var classesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a class (teachers)",
	Args:  cobra.NoArgs,
	RunE:  asRole(session.RoleTeacher, runClassesCreate),
}

var classesDeleteCmd = &cobra.Command{
	Use:   "delete <class-id>",
	Short: "Delete a class (teachers)",
	Args:  cobra.ExactArgs(1),
	RunE:  asRole(session.RoleTeacher, runClassesDelete),
}

var classesJoinCmd = &cobra.Command{
	Use:   "join <code>",
	Short: "Join a class with its code (students)",
	Args:  cobra.ExactArgs(1),
	RunE:  asRole(session.RoleStudent, runClassesJoin),
}

var classesAssignCmd = &cobra.Command{
	Use:   "assign <class-id> <deck-id>",
	Short: "Assign a deck to a class (teachers)",
	Args:  cobra.ExactArgs(2),
	RunE:  asRole(session.RoleTeacher, runClassesAssign),
}

var classesStudentsCmd = &cobra.Command{
	Use:   "students <class-id>",
	Short: "List the students of a class (teachers)",
	Args:  cobra.ExactArgs(1),
	RunE:  asRole(session.RoleTeacher, runClassesStudents),
}

var classListing = listing[api.Class]{
	resource: "class",
	headers:  []string{"ID", "NAME", "CODE", "STUDENTS", "DECKS"},
	row: func(c api.Class) []string {
		return []string{c.ID, c.Name, c.Code, strconv.Itoa(len(c.StudentIDs)), strconv.Itoa(len(c.DeckIDs))}
	},
	empty: "No classes.",
}

var studentListing = listing[api.Student]{
	resource: "student",
	headers:  []string{"UID", "USERNAME", "EMAIL"},
	row: func(s api.Student) []string {
		return []string{s.UID, s.Username, s.Email}
	},
	empty: "No students have joined yet.",
}

func init() {
	classesListCmd.Flags().Bool("watch", false, "keep refreshing the list")
	classesListCmd.Flags().Duration("interval", 0, "refresh interval for --watch (default poll.interval)")

	classesCreateCmd.Flags().String("name", "", "Class name (required)")
	classesCreateCmd.Flags().String("description", "", "Class description")
	_ = classesCreateCmd.MarkFlagRequired("name")

	classesCmd.AddCommand(classesListCmd)
	classesCmd.AddCommand(classesCreateCmd)
	classesCmd.AddCommand(classesDeleteCmd)
	classesCmd.AddCommand(classesJoinCmd)
	classesCmd.AddCommand(classesAssignCmd)
	classesCmd.AddCommand(classesStudentsCmd)

	rootCmd.AddCommand(classesCmd)
}

// asRole is signedIn for commands restricted to one role. The role is
// resolved from the backend before fn runs.
func asRole(role session.Role, fn appRunE) func(*cobra.Command, []string) error {
	return signedIn(func(cmd *cobra.Command, args []string, a *app) error {
		if _, err := a.requireRole(cmd.Context(), role); err != nil {
			return err
		}
		return fn(cmd, args, a)
	})
}

func runClassesList(cmd *cobra.Command, args []string, a *app) error {
	watch, _ := cmd.Flags().GetBool("watch")
	interval, _ := cmd.Flags().GetDuration("interval")
	return classListing.show(cmd.Context(), a, a.api.ListClasses, watch, interval)
}

func runClassesCreate(cmd *cobra.Command, args []string, a *app) error {
	req := api.ClassRequest{}
	req.Name, _ = cmd.Flags().GetString("name")
	req.Description, _ = cmd.Flags().GetString("description")

	class, err := a.api.CreateClass(cmd.Context(), req)
	if err != nil {
		return api.Coded(err)
	}
	return a.out.value(class, func(w io.Writer) {
		fmt.Fprintf(w, "Created class %q (%s)\n", class.Name, class.ID)
		if class.Code != "" {
			fmt.Fprintf(w, "Students join with: memora classes join %s\n", class.Code)
		}
	})
}

func runClassesDelete(cmd *cobra.Command, args []string, a *app) error {
	return deleteFrom[api.Class](cmd.Context(), a, "class", a.api.ListClasses, args[0], a.api.DeleteClass)
}

func runClassesJoin(cmd *cobra.Command, args []string, a *app) error {
	if err := a.api.JoinClass(cmd.Context(), args[0]); err != nil {
		return api.Coded(err)
	}
	return a.out.message(fmt.Sprintf("Joined class with code %s.", args[0]), map[string]any{"code": args[0]})
}

func runClassesAssign(cmd *cobra.Command, args []string, a *app) error {
	if err := a.api.AssignDeck(cmd.Context(), args[0], args[1]); err != nil {
		return api.Coded(err)
	}
	return a.out.message(
		fmt.Sprintf("Assigned deck %s to class %s.", args[1], args[0]),
		map[string]any{"class": args[0], "deck": args[1]},
	)
}

func runClassesStudents(cmd *cobra.Command, args []string, a *app) error {
	classID := args[0]
	return studentListing.show(cmd.Context(), a, func(ctx context.Context) ([]api.Student, error) {
		return a.api.ListStudents(ctx, classID)
	}, false, 0)
}
