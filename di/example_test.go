package di_test

import (
	"fmt"

	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/di/handlers"
)

type Logger interface {
	Log(msg string) string
}

type consoleLogger struct{}

func (consoleLogger) Log(msg string) string { return "[console] " + msg }

type Database struct {
	Host string
	Port int
}

type UserService struct {
	Logger Logger    `di:""`
	DB     *Database `di:""`
	Region string    `di:"region"`
}

func NewDatabase() *Database {
	return &Database{Host: "localhost", Port: 3306}
}

func Example() {
	set := handlers.NewSet()
	if err := handlers.Bind[Logger, *consoleLogger](set.Implementations); err != nil {
		panic(err)
	}

	inj := di.NewBuilder().
		AddHandlers(set.Handlers()...).
		Constructor(NewDatabase).
		MustBuild()
	if err := inj.Provide(di.Named("region"), "eu-west"); err != nil {
		panic(err)
	}

	svc := di.MustGet[*UserService](inj)
	fmt.Println(svc.Logger.Log("ready"))
	fmt.Printf("%s:%d %s\n", svc.DB.Host, svc.DB.Port, svc.Region)

	again := di.MustGet[*UserService](inj)
	fmt.Println(svc == again)
	// Output:
	// [console] ready
	// localhost:3306 eu-west
	// true
}

func ExampleRetrieveAll() {
	inj := di.NewInjector()
	_ = di.Register[*Database](inj, &Database{Host: "primary"})
	_ = di.Register[Logger](inj, consoleLogger{})

	for _, l := range di.RetrieveAll[Logger](inj) {
		fmt.Println(l.Log("found"))
	}
	// Output:
	// [console] found
}
