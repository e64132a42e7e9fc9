package habits

import (
	"fmt"
	"strings"

	"github.com/julianstephens/habitkeep/internal/cli"
	"github.com/julianstephens/habitkeep/internal/models"
	"github.com/julianstephens/habitkeep/internal/service"
)

type HabitCmd struct {
	Add      HabitAddCmd      `cmd:"" help:"Add a new habit."`
	List     HabitListCmd     `cmd:"" help:"List habits." default:"1"`
	Tick     HabitTickCmd     `cmd:"" help:"Mark a habit done for a day."`
	Untick   HabitUntickCmd   `cmd:"" help:"Mark a habit not done for a day."`
	Rename   HabitRenameCmd   `cmd:"" help:"Rename a habit."`
	Star     HabitStarCmd     `cmd:"" help:"Star a habit."`
	Unstar   HabitUnstarCmd   `cmd:"" help:"Remove a habit's star."`
	Archive  HabitArchiveCmd  `cmd:"" help:"Archive a habit."`
	Activate HabitActivateCmd `cmd:"" help:"Make an archived or deleted habit active again."`
	Delete   HabitDeleteCmd   `cmd:"" help:"Delete a habit (soft delete, keeps history)."`
	Remove   HabitRemoveCmd   `cmd:"" help:"Remove a habit and its history for good."`
	Move     HabitMoveCmd     `cmd:"" help:"Move a habit to a position in the list."`
	Show     HabitShowCmd     `cmd:"" help:"Show a habit's history as a heatmap."`
}

// lookup resolves ref against the user's current list.
func lookup(ctx *cli.Context, ref string) (*service.Service, *models.Habit, error) {
	svc, err := ctx.Service()
	if err != nil {
		return nil, nil, err
	}
	list, err := svc.UserList(ctx.Ctx, ctx.User())
	if err != nil {
		return nil, nil, err
	}
	h, err := resolve(list, ref)
	if err != nil {
		return nil, nil, err
	}
	return svc, h, nil
}

func parseDay(svc *service.Service, s string) (models.Day, error) {
	if s == "" {
		return svc.Today(), nil
	}
	return models.ParseDay(s)
}

type HabitAddCmd struct {
	Name string `arg:"" help:"Habit name."`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	svc, err := ctx.Service()
	if err != nil {
		return err
	}
	h, err := svc.AddHabit(ctx.Ctx, ctx.User(), c.Name)
	if err != nil {
		return err
	}
	ctx.Printf("✓ Added habit: %s (%s)\n", h.Name(), h.ID())
	return nil
}

type HabitListCmd struct {
	All  bool `help:"Include archived and deleted habits."`
	Days int  `help:"Number of recent days to show." default:"7"`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	if c.Days < 1 {
		return fmt.Errorf("%w: --days must be positive", service.ErrInvalidRequest)
	}
	svc, err := ctx.Service()
	if err != nil {
		return err
	}
	list, err := svc.UserList(ctx.Ctx, ctx.User())
	if err != nil {
		return err
	}

	habits := list.ActiveHabits()
	if c.All {
		habits = list.ManagementView()
	}
	if len(habits) == 0 {
		ctx.Println("No habits found.")
		return nil
	}

	today := svc.Today()
	for _, h := range habits {
		star := " "
		if h.Star() {
			star = "★"
		}
		ctx.Printf("%s %s  %s  %s%s\n", star, mutedStyle.Render(h.ID()), strip(h, today, c.Days), h.Name(), statusTag(h.Status()))
	}
	return nil
}

type HabitTickCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Date  string `help:"Date in YYYY-MM-DD format (default: today)." default:""`
}

func (c *HabitTickCmd) Run(ctx *cli.Context) error {
	return tick(ctx, c.Habit, c.Date, true)
}

type HabitUntickCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Date  string `help:"Date in YYYY-MM-DD format (default: today)." default:""`
}

func (c *HabitUntickCmd) Run(ctx *cli.Context) error {
	return tick(ctx, c.Habit, c.Date, false)
}

func tick(ctx *cli.Context, ref, date string, done bool) error {
	svc, h, err := lookup(ctx, ref)
	if err != nil {
		return err
	}
	day, err := parseDay(svc, date)
	if err != nil {
		return err
	}
	if _, err := svc.TickHabit(ctx.Ctx, ctx.User(), h.ID(), day, done); err != nil {
		return err
	}
	if done {
		ctx.Printf("✓ Marked %q done for %s\n", h.Name(), day)
	} else {
		ctx.Printf("Unmarked %q for %s\n", h.Name(), day)
	}
	return nil
}

type HabitRenameCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Name  string `arg:"" help:"New name."`
}

func (c *HabitRenameCmd) Run(ctx *cli.Context) error {
	svc, h, err := lookup(ctx, c.Habit)
	if err != nil {
		return err
	}
	old := h.Name()
	renamed, err := svc.RenameHabit(ctx.Ctx, ctx.User(), h.ID(), c.Name)
	if err != nil {
		return err
	}
	ctx.Printf("✓ Renamed %q to %q\n", old, renamed.Name())
	return nil
}

type HabitStarCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
}

func (c *HabitStarCmd) Run(ctx *cli.Context) error {
	return star(ctx, c.Habit, true)
}

type HabitUnstarCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
}

func (c *HabitUnstarCmd) Run(ctx *cli.Context) error {
	return star(ctx, c.Habit, false)
}

func star(ctx *cli.Context, ref string, on bool) error {
	svc, h, err := lookup(ctx, ref)
	if err != nil {
		return err
	}
	if _, err := svc.StarHabit(ctx.Ctx, ctx.User(), h.ID(), on); err != nil {
		return err
	}
	if on {
		ctx.Printf("★ Starred %q\n", h.Name())
	} else {
		ctx.Printf("Unstarred %q\n", h.Name())
	}
	return nil
}

type HabitArchiveCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
}

func (c *HabitArchiveCmd) Run(ctx *cli.Context) error {
	return setStatus(ctx, c.Habit, models.StatusArchived)
}

type HabitActivateCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
}

func (c *HabitActivateCmd) Run(ctx *cli.Context) error {
	return setStatus(ctx, c.Habit, models.StatusActive)
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	return setStatus(ctx, c.Habit, models.StatusSoftDeleted)
}

func setStatus(ctx *cli.Context, ref string, status models.Status) error {
	svc, h, err := lookup(ctx, ref)
	if err != nil {
		return err
	}
	if _, err := svc.SetHabitStatus(ctx.Ctx, ctx.User(), h.ID(), status); err != nil {
		return err
	}
	ctx.Printf("✓ %q is now %s\n", h.Name(), strings.ReplaceAll(string(status), "_", " "))
	return nil
}

type HabitRemoveCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Yes   bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *HabitRemoveCmd) Run(ctx *cli.Context) error {
	svc, h, err := lookup(ctx, c.Habit)
	if err != nil {
		return err
	}
	if !c.Yes {
		ok, err := ctx.Confirm(
			fmt.Sprintf("Remove %q?", h.Name()),
			"Its whole history is removed. Use 'habit delete' to keep it.",
		)
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Remove cancelled.")
			return nil
		}
	}
	if err := svc.RemoveHabit(ctx.Ctx, ctx.User(), h.ID()); err != nil {
		return err
	}
	ctx.Printf("✓ Removed %q\n", h.Name())
	return nil
}

type HabitMoveCmd struct {
	Habit    string `arg:"" help:"Habit id or name."`
	Position int    `arg:"" help:"New position, starting at 1."`
}

func (c *HabitMoveCmd) Run(ctx *cli.Context) error {
	svc, h, err := lookup(ctx, c.Habit)
	if err != nil {
		return err
	}
	if _, err := svc.MoveHabit(ctx.Ctx, ctx.User(), h.ID(), c.Position-1); err != nil {
		return err
	}
	ctx.Printf("✓ Moved %q to position %d\n", h.Name(), c.Position)
	return nil
}

type HabitShowCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Days  int    `help:"Number of days to show." default:"90"`
}

func (c *HabitShowCmd) Run(ctx *cli.Context) error {
	svc, h, err := lookup(ctx, c.Habit)
	if err != nil {
		return err
	}
	if c.Days <= 0 {
		return fmt.Errorf("%w: --days must be positive", service.ErrInvalidRequest)
	}
	ctx.Println(Heatmap(h, svc.Today(), c.Days))
	ctx.Printf("%s %d of the last %d days\n", mutedStyle.Render("Done"), doneCount(h, svc.Today(), c.Days), c.Days)
	return nil
}

func doneCount(h *models.Habit, end models.Day, n int) int {
	count := 0
	for _, day := range models.LastDays(end, n) {
		if h.IsDone(day) {
			count++
		}
	}
	return count
}
