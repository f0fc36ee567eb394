// Package tui is the terminal chat view. It mounts the chat controller for
// as long as it runs and redraws from the controller's published state.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/matheus3301/deskchat/internal/bus"
	"github.com/matheus3301/deskchat/internal/chat"
	domain "github.com/matheus3301/deskchat/internal/model"
	"github.com/matheus3301/deskchat/internal/tui/keys"
	"github.com/matheus3301/deskchat/internal/tui/model"
	"github.com/matheus3301/deskchat/internal/tui/ui"
	"github.com/matheus3301/deskchat/internal/tui/views"
)

const (
	pageChat   = "chat"
	pageFAQ    = "faq"
	pageSearch = "search"
	pageImage  = "image"
	pageHelp   = "help"

	promptHeight = 3
	tickInterval = time.Second
)

// Options configures the App.
type Options struct {
	Profile string
	Chat    model.Chat
	FAQ     model.FAQSource
	Archive model.Archive
	Bus     *bus.Bus
	Logger  *zap.Logger
}

// App is the TUI application shell.
type App struct {
	app        *tview.Application
	theme      *ui.Theme
	body       *tview.Flex
	stack      *ui.Stack
	logo       *ui.Logo
	crumbs     *ui.Crumbs
	menu       *ui.Menu
	info       *ui.ProfileInfo
	flashBar   *ui.FlashBar
	prompt     *ui.Prompt
	flash      *ui.FlashModel
	registry   *keys.Registry
	vm         *model.ViewModel
	statusBar  *views.StatusBar
	chatView   *views.ChatView
	faqView    *views.FAQView
	searchView *views.SearchView
	imageView  *views.ImageView
	helpView   *views.HelpView

	profile string
	agent   string // UI goroutine only
	bus     *bus.Bus
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(opts Options) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	a := &App{
		app:        tview.NewApplication(),
		theme:      theme,
		stack:      ui.NewStack(),
		logo:       ui.NewLogo(theme),
		crumbs:     ui.NewCrumbs(theme),
		menu:       ui.NewMenu(theme),
		info:       ui.NewProfileInfo(theme),
		flashBar:   ui.NewFlashBar(theme),
		prompt:     ui.NewPrompt(theme, commandNames),
		flash:      ui.NewFlashModel(),
		registry:   keys.NewRegistry(),
		vm:         model.NewViewModel(opts.Chat, opts.FAQ, opts.Archive),
		statusBar:  views.NewStatusBar(theme),
		chatView:   views.NewChatView(theme),
		faqView:    views.NewFAQView(theme),
		searchView: views.NewSearchView(theme),
		imageView:  views.NewImageView(theme),
		helpView:   views.NewHelpView(theme),
		profile:    opts.Profile,
		bus:        opts.Bus,
		log:        log.Named("tui"),
		ctx:        ctx,
		cancel:     cancel,
	}
	a.chatView.SetSelf(a.vm.Identity().UserID)
	a.statusBar.SetProfile(opts.Profile)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("quit", &keys.Action{
		Key: tcell.KeyRune, Rune: 'q',
		Description: "q:quit", Visible: true,
		Handler: a.Stop,
	})
	a.registry.AddGlobal("help", &keys.Action{
		Key: tcell.KeyRune, Rune: '?',
		Description: "?:help", Visible: true,
		Handler: func() { a.show(pageHelp) },
	})
	a.registry.AddGlobal("faq", &keys.Action{
		Key: tcell.KeyRune, Rune: 'f',
		Description: "f:faq", Visible: true,
		Handler: a.openFAQ,
	})
	a.registry.AddGlobal("search", &keys.Action{
		Key: tcell.KeyRune, Rune: 's',
		Description: "s:search", Visible: true,
		Handler: func() { a.openSearch("") },
	})
	a.registry.AddView(pageChat, "compose", &keys.Action{
		Key: tcell.KeyRune, Rune: 'i',
		Description: "i:compose", Visible: true,
		Handler: func() { a.app.SetFocus(a.chatView.Composer()) },
	})
	a.registry.AddView(pageChat, "view", &keys.Action{
		Key: tcell.KeyRune, Rune: 'v',
		Description: "v:view image", Visible: true,
		Handler: a.viewImage,
	})
}

// sendFailure is what a failed send shows the user. A missing room or
// connection is not reported.
func sendFailure(err error) error {
	if errors.Is(err, chat.ErrNoRoom) || errors.Is(err, chat.ErrNotMounted) {
		return nil
	}
	return fmt.Errorf("send failed: %w", err)
}

func (a *App) setupCallbacks() {
	a.chatView.SetOnType(func(text string) {
		if err := a.vm.Type(text); err != nil && !errors.Is(err, chat.ErrNotMounted) {
			a.log.Debug("keystroke dropped", zap.Error(err))
		}
	})
	a.chatView.SetOnSend(func() {
		if err := a.vm.Send(); err != nil {
			if err = sendFailure(err); err != nil {
				a.flash.Err(err)
			}
			return
		}
		a.chatView.ClearComposer()
	})

	a.searchView.SetOnQuery(a.search)

	a.prompt.SetOnSubmit(func(text string) {
		a.hidePrompt()
		a.runCommand(ParseCommand(text))
	})
	a.prompt.SetOnCancel(a.hidePrompt)

	a.stack.SetOnChange(func(top ui.View, trail []string) {
		a.crumbs.Update(trail)
		if top != nil {
			a.menu.Update(top.Hints())
		}
	})
}

func (a *App) setupLayout() {
	a.stack.Register(pageChat, a.chatView)
	a.stack.Register(pageFAQ, a.faqView)
	a.stack.Register(pageSearch, a.searchView)
	a.stack.Register(pageImage, a.imageView)
	a.stack.Register(pageHelp, a.helpView)

	header := tview.NewFlex().
		AddItem(a.info, 34, 0, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(a.logo, 16, 0, false)

	a.body = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.stack, 0, 1, true).
		AddItem(a.flashBar, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(a.body, true)
	a.app.SetInputCapture(a.capture)
	a.stack.Home(pageChat)
	a.app.SetFocus(a.chatView.FocusTarget())
}

func (a *App) capture(ev *tcell.EventKey) *tcell.EventKey {
	focused := a.app.GetFocus()
	if _, ok := focused.(*tview.InputField); ok {
		if ev.Key() != tcell.KeyEscape {
			return ev
		}
		switch focused {
		case a.prompt.InputField:
			return ev
		case a.chatView.Composer():
			a.app.SetFocus(a.chatView.Messages())
			return nil
		}
		a.back()
		return nil
	}

	switch {
	case ev.Key() == tcell.KeyEscape:
		a.back()
		return nil
	case ev.Key() == tcell.KeyRune && ev.Rune() == ':':
		a.showPrompt()
		return nil
	}
	if a.registry.HandleEvent(a.current(), ev) {
		return nil
	}
	return ev
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "quit":
		a.Stop()
	case "help":
		a.show(pageHelp)
	case "chat":
		a.stack.Home(pageChat)
		a.focusTop()
	case "faq":
		a.openFAQ()
	case "search":
		a.openSearch(cmd.Args)
	case "image":
		a.attach(cmd.Args)
	case "view":
		a.viewImage()
	case "refresh":
		a.refresh()
	case "":
	default:
		a.flash.Warn("unknown command: " + cmd.Name)
	}
}

func (a *App) showPrompt() {
	a.prompt.Activate()
	a.body.ResizeItem(a.prompt, promptHeight, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.body.ResizeItem(a.prompt, 0, 0)
	a.focusTop()
}

func (a *App) current() string {
	id, _ := a.stack.Top()
	return id
}

func (a *App) show(page string) {
	a.stack.Open(page)
	a.focusTop()
}

func (a *App) back() {
	a.stack.Back()
	a.focusTop()
}

func (a *App) focusTop() {
	if _, v := a.stack.Top(); v != nil {
		a.app.SetFocus(v.FocusTarget())
	}
}

func (a *App) openFAQ() {
	a.show(pageFAQ)
	if len(a.vm.GetFAQ()) == 0 {
		go a.loadFAQ()
	}
}

func (a *App) loadFAQ() {
	if err := a.vm.LoadFAQ(a.ctx); err != nil {
		a.log.Warn("faq load failed", zap.Error(err))
		a.flash.Err(fmt.Errorf("load FAQ: %w", err))
		return
	}
	a.app.QueueUpdateDraw(func() {
		a.faqView.Update(a.vm.GetFAQ())
	})
}

func (a *App) openSearch(query string) {
	a.show(pageSearch)
	if query != "" {
		a.searchView.SetQuery(query)
		a.search(query)
	}
}

func (a *App) search(query string) {
	go func() {
		results, err := a.vm.Search(query)
		if err != nil {
			a.flash.Err(err)
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.searchView.Update(results)
			if len(results) > 0 {
				a.app.SetFocus(a.searchView.Results())
			}
		})
	}()
}

func (a *App) attach(path string) {
	go func() {
		a.flash.Info("Uploading image...")
		if err := a.vm.AttachImage(a.ctx, path); err != nil {
			a.flash.Err(fmt.Errorf("image: %w", err))
			return
		}
		a.flash.Info("Image sent")
	}()
}

func (a *App) viewImage() {
	m, ok := a.vm.LatestImage()
	if !ok {
		a.flash.Warn("No images in this conversation")
		return
	}
	a.imageView.Show(m)
	a.show(pageImage)
}

func (a *App) refresh() {
	go func() {
		if err := a.vm.Refresh(a.ctx); err != nil {
			a.flash.Err(fmt.Errorf("refresh: %w", err))
			return
		}
		a.flash.Info("Support room is up to date")
	}()
}

func (a *App) mount() {
	err := a.vm.Mount(a.ctx)
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrBlocked):
		// The chat page shows the banner; the notice already flashed.
		a.log.Warn("merchant is blocked from support", zap.Error(err))
	case errors.Is(err, context.Canceled):
	default:
		a.log.Error("mount failed", zap.Error(err))
		a.flash.Err(fmt.Errorf("connect to support: %w", err))
	}
}

// watch forwards controller events and flash messages to the UI goroutine.
func (a *App) watch(events <-chan bus.Event) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case evt := <-events:
			a.onEvent(evt)
		case <-a.flash.Watch():
			a.app.QueueUpdateDraw(func() { a.flashBar.Update(a.flash.Current()) })
		case <-ticker.C:
			a.app.QueueUpdateDraw(func() {
				a.flashBar.Update(a.flash.Current())
				a.statusBar.SetSnapshot(a.vm.Snapshot())
			})
		}
	}
}

func (a *App) onEvent(evt bus.Event) {
	switch p := evt.Payload.(type) {
	case chat.Snapshot:
		a.app.QueueUpdateDraw(func() { a.render(p) })
	case chat.Notice:
		if p.Level == chat.NoticeError {
			a.flash.Err(errors.New(p.Text))
		} else {
			a.flash.Info(p.Text)
		}
	case domain.AgentAssigned:
		a.app.QueueUpdateDraw(func() { a.agent = p.AgentName })
	}
}

func (a *App) render(s chat.Snapshot) {
	a.chatView.Update(s)
	a.statusBar.SetSnapshot(s)
	a.logo.SetOnline(s.Connected())
	a.crumbs.Update(a.stack.Titles())

	data := &ui.ProfileData{
		Profile:    a.profile,
		Merchant:   a.vm.Identity().Username,
		Agent:      a.agentName(s),
		Connection: string(s.Conn),
		Messages:   len(s.Messages),
	}
	if s.Room != nil {
		data.RoomID = s.Room.ID
		data.RoomStatus = string(s.Room.Status)
	}
	if s.Blocked {
		data.RoomStatus = "blocked"
	}
	a.info.Update(data)
}

func (a *App) agentName(s chat.Snapshot) string {
	if a.agent != "" {
		return a.agent
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if m := s.Messages[i]; m.SenderRole == domain.RoleAgent && m.SenderName != "" {
			return m.SenderName
		}
	}
	return ""
}

// Run mounts the chat session and blocks until the user quits. The session
// is unmounted on return.
func (a *App) Run() error {
	events, unsub := a.bus.Subscribe("chat.", 256)
	defer unsub()

	go a.watch(events)
	go a.mount()
	go a.loadFAQ()

	err := a.app.Run()
	a.cancel()
	if uerr := a.vm.Unmount(); uerr != nil && !errors.Is(uerr, chat.ErrStopped) {
		a.log.Warn("unmount failed", zap.Error(uerr))
	}
	return err
}

// Stop shuts the TUI down.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
