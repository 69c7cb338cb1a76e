// Command devtoken prints a signed access token for local testing.
//
//	devtoken -sub cust-1 -role CUSTOMER
//	devtoken -sub staff-1 -role STAFF -shop shop-1
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/JoseLuizMendes/barber-pro/internal/utils"
)

func main() {
	_ = godotenv.Load()
	sub := flag.String("sub", "", "token subject (customer or staff id)")
	role := flag.String("role", utils.RoleCustomer, "CUSTOMER, STAFF or ADMIN")
	shop := flag.String("shop", "", "barbershop id for STAFF tokens")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" || *sub == "" {
		flag.Usage()
		log.Fatal("JWT_SECRET and -sub are required")
	}
	r := strings.ToUpper(*role)
	if r == utils.RoleStaff && *shop == "" {
		log.Fatal("-shop is required for STAFF tokens")
	}
	tok, err := utils.NewAccessToken(secret, *sub, r, *shop, *ttl)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(tok.Token)
}
