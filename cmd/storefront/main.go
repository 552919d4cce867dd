package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/plateful/storefront/internal/apiclient"
	"github.com/plateful/storefront/internal/auth"
	"github.com/plateful/storefront/internal/config"
	"github.com/plateful/storefront/internal/enum"
	"github.com/plateful/storefront/internal/model"
	"github.com/plateful/storefront/internal/poll"
	"github.com/plateful/storefront/internal/storage"
	"github.com/plateful/storefront/internal/store"
	"github.com/plateful/storefront/internal/view"
)

// Demo storefront: browse the menu, fill a cart, check out, then track
// the order until it reaches a terminal status.
func main() {
	name := flag.String("name", "Dina", "Customer name")
	phone := flag.String("phone", "0811-555-0199", "Customer phone number")
	flag.Parse()

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := storage.OpenSQLite(cfg.SnapshotDB)
	if err != nil {
		log.Fatalf("open snapshot store: %v", err)
	}
	session := storage.Open(backend)

	client := apiclient.New(cfg.APIBaseURL, apiclient.WithPhone(*phone))

	orders := store.NewOrders(client, session)
	cart := store.NewCart(session)

	notifier := poll.NewNotifier(orders, poll.WithBroadcast(session))
	go notifier.Run(ctx)

	// Push assist: any order event from the service forces a refresh
	// ahead of the next poll tick.
	go client.SubscribeEvents(ctx, func(apiclient.OrderEvent) {
		notifier.TriggerRefresh()
	})

	branches, err := client.ListBranches(ctx)
	if err != nil {
		log.Fatalf("list branches: %v", err)
	}
	if len(branches) == 0 {
		log.Fatal("no branches; run the seed tool first")
	}
	branch := branches[0]
	log.Printf("Ordering from %s", branch.Name)

	dishes, err := client.ListDishes(ctx, branch.ID)
	if err != nil {
		log.Fatalf("list dishes: %v", err)
	}
	if len(dishes) == 0 {
		log.Fatal("branch has no menu; run the seed tool first")
	}

	for _, dish := range dishes {
		if !dish.Available {
			continue
		}
		if err := cart.AddItem(dish, 1, ""); err != nil {
			log.Fatalf("add to cart: %v", err)
		}
		log.Printf("Added %s (%d cents)", dish.Name, dish.PriceCents)
		if cart.ItemCount() >= 2 {
			break
		}
	}
	log.Printf("Cart total: %d cents across %d items", cart.TotalCents(), cart.ItemCount())

	order, err := store.Checkout(ctx, orders, cart, branch.ID, *name, *phone)
	if err != nil {
		log.Fatalf("checkout: %v", err)
	}
	log.Printf("Order #%d placed (%s)", order.OrderNumber, order.ID)

	actor := auth.CustomerActor(*phone)
	done := make(chan struct{})
	var once sync.Once
	tracker := view.NewOrderTracker(actor, orders, notifier, cfg.TrackerInterval,
		view.TrackRef{ID: order.ID}, func(o model.Order) {
			log.Printf("Order #%d is now %s", o.OrderNumber, o.Status)
			if enum.IsTerminalOrderStatus(o.Status) {
				once.Do(func() { close(done) })
			}
		})
	defer tracker.Close()

	select {
	case <-done:
		log.Println("Order reached a terminal status, goodbye")
	case <-ctx.Done():
		log.Println("Interrupted")
	}
}
