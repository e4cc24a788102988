package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "credential":
		handleCredential(args)
	case "request":
		handleRequest(args)
	case "relationship":
		handleRelationship(args)
	case "document":
		handleDocument(args)
	case "admin":
		handleAdmin(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: partnerhub auth <register|login|logout|who>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "register":
		registerCompany(args[1:])
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", subCmd)
	}
}

func handleCredential(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: partnerhub credential <list|stats|create|status>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listCredentials(args[1:])
	case "stats":
		credentialStats(args[1:])
	case "create":
		createCredential(args[1:])
	case "status":
		changeCredentialStatus(args[1:])
	default:
		fmt.Printf("unknown credential command: %s\n", subCmd)
	}
}

func handleRequest(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: partnerhub request <sent|received|send|respond>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "sent":
		listRequests("sent")
	case "received":
		listRequests("received")
	case "send":
		sendRequest(args[1:])
	case "respond":
		respondRequest(args[1:])
	default:
		fmt.Printf("unknown request command: %s\n", subCmd)
	}
}

func handleRelationship(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: partnerhub relationship <list|stats>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listRelationships(args[1:])
	case "stats":
		relationshipStats(args[1:])
	default:
		fmt.Printf("unknown relationship command: %s\n", subCmd)
	}
}

func handleDocument(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: partnerhub document <list|summary>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listDocuments(args[1:])
	case "summary":
		documentSummary(args[1:])
	default:
		fmt.Printf("unknown document command: %s\n", subCmd)
	}
}

func handleAdmin(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: partnerhub admin <sweep>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "sweep":
		runSweep()
	default:
		fmt.Printf("unknown admin command: %s\n", subCmd)
	}
}

func runSweep() {
	req, _ := http.NewRequest("POST", getAPIURL()+"/admin/sweep", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 202 {
		fmt.Printf("✗ Sweep failed (%d)\n", resp.StatusCode)
		return
	}
	fmt.Println("✓ Expiry sweep triggered")
}

// Auth commands
func registerCompany(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	company := fs.String("company", "", "company name")
	kind := fs.String("kind", "", "company kind (brand or supplier)")
	taxID := fs.String("tax-id", "", "company tax ID (CNPJ)")
	name := fs.String("name", "", "admin user name")
	email := fs.String("email", "", "admin email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *company == "" || *kind == "" || *taxID == "" || *email == "" || *password == "" {
		fmt.Println("Error: company, kind, tax-id, email, and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"companyName": *company,
		"companyKind": *kind,
		"taxId":       *taxID,
		"userName":    *name,
		"email":       *email,
		"password":    *password,
	}

	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/register", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ Company registered: %s (%s)\n", *company, *kind)
		if token, ok := result["token"].(string); ok {
			saveToken(token)
		}
	} else {
		fmt.Printf("✗ Registration failed: %v\n", result)
	}
}

func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"email": *email, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *email)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutUser() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in (token: %s...)\n", token[:20])
}

// Credential commands
func listCredentials(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	status := fs.String("status", "", "filter by status (comma separated)")
	fs.Parse(args)

	url := getAPIURL() + "/credentials"
	if *status != "" {
		url += "?status=" + *status
	}

	var credentials []map[string]interface{}
	if !getJSON(url, &credentials) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTAX ID\tTRADE NAME\tSTATUS\tPRIORITY")
	for _, c := range credentials {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", c["id"], c["taxId"], c["tradeName"], c["status"], c["priority"])
	}
	w.Flush()
}

func credentialStats(args []string) {
	_ = args
	var stats map[string]interface{}
	if !getJSON(getAPIURL()+"/credentials/stats", &stats) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Total\t%v\n", stats["total"])
	fmt.Fprintf(w, "Active\t%v\n", stats["active"])
	fmt.Fprintf(w, "Pending action\t%v\n", stats["pendingAction"])
	fmt.Fprintf(w, "Awaiting response\t%v\n", stats["awaitingResponse"])
	fmt.Fprintf(w, "Conversion rate\t%v%%\n", stats["conversionRate"])
	w.Flush()
}

func createCredential(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	taxID := fs.String("tax-id", "", "supplier tax ID (CNPJ)")
	tradeName := fs.String("trade-name", "", "supplier trade name")
	contactName := fs.String("contact", "", "contact name")
	contactEmail := fs.String("contact-email", "", "contact email")
	fs.Parse(args)

	if *taxID == "" {
		fmt.Println("Error: tax-id is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"taxId":        *taxID,
		"tradeName":    *tradeName,
		"contactName":  *contactName,
		"contactEmail": *contactEmail,
	}
	var result map[string]interface{}
	if !postJSON(getAPIURL()+"/credentials", payload, &result, 201) {
		return
	}
	fmt.Printf("✓ Credential created: %v (status %v)\n", result["id"], result["status"])
}

func changeCredentialStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	id := fs.String("id", "", "credential ID")
	status := fs.String("to", "", "target status")
	reason := fs.String("reason", "", "reason (required when blocking)")
	fs.Parse(args)

	if *id == "" || *status == "" {
		fmt.Println("Error: id and to are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"status": *status, "reason": *reason}
	var result map[string]interface{}
	if !postJSON(getAPIURL()+"/credentials/"+*id+"/status", payload, &result, 200) {
		return
	}
	fmt.Printf("✓ Credential %v is now %v\n", result["id"], result["status"])
}

// Partnership request commands
func listRequests(direction string) {
	var requests []map[string]interface{}
	if !getJSON(getAPIURL()+"/partnership-requests/"+direction, &requests) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBRAND\tSUPPLIER\tSTATUS\tEXPIRES")
	for _, r := range requests {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", r["id"], r["brandId"], r["supplierId"], r["status"], r["expiresAt"])
	}
	w.Flush()
}

func sendRequest(args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	supplier := fs.String("supplier", "", "supplier company ID")
	message := fs.String("message", "", "message to the supplier")
	fs.Parse(args)

	if *supplier == "" {
		fmt.Println("Error: supplier is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"supplierId": *supplier, "message": *message}
	var result map[string]interface{}
	if !postJSON(getAPIURL()+"/partnership-requests", payload, &result, 201) {
		return
	}
	fmt.Printf("✓ Request sent: %v (expires %v)\n", result["id"], result["expiresAt"])
}

func respondRequest(args []string) {
	fs := flag.NewFlagSet("respond", flag.ExitOnError)
	id := fs.String("id", "", "request ID")
	action := fs.String("action", "", "accept or reject")
	reason := fs.String("reason", "", "rejection reason")
	consent := fs.Bool("consent", false, "grant document sharing consent on accept")
	fs.Parse(args)

	if *id == "" || *action == "" {
		fmt.Println("Error: id and action are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{
		"action":                 *action,
		"reason":                 *reason,
		"documentSharingConsent": *consent,
	}
	var result map[string]interface{}
	if !postJSON(getAPIURL()+"/partnership-requests/"+*id+"/respond", payload, &result, 200) {
		return
	}
	fmt.Printf("✓ Request %v: %v\n", *id, result["status"])
}

// Relationship commands
func listRelationships(args []string) {
	_ = args
	var relationships []map[string]interface{}
	if !getJSON(getAPIURL()+"/relationships", &relationships) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBRAND\tSUPPLIER\tSTATUS\tCONSENT")
	for _, r := range relationships {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", r["id"], r["brandId"], r["supplierId"], r["status"], r["documentSharingConsent"])
	}
	w.Flush()
}

func relationshipStats(args []string) {
	_ = args
	var stats map[string]interface{}
	if !getJSON(getAPIURL()+"/relationships/stats", &stats) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for status, count := range stats {
		fmt.Fprintf(w, "%s\t%v\n", status, count)
	}
	w.Flush()
}

// Document commands
func listDocuments(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	supplier := fs.String("supplier", "", "supplier company ID (brand side)")
	docType := fs.String("type", "", "filter by document type")
	fs.Parse(args)

	url := getAPIURL() + "/documents?"
	if *supplier != "" {
		url += "supplierId=" + *supplier + "&"
	}
	if *docType != "" {
		url += "type=" + *docType
	}

	var documents []map[string]interface{}
	if !getJSON(url, &documents) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tEXPIRES")
	for _, d := range documents {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", d["id"], d["type"], d["status"], d["expiresAt"])
	}
	w.Flush()
}

func documentSummary(args []string) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	supplier := fs.String("supplier", "", "supplier company ID (brand side)")
	fs.Parse(args)

	url := getAPIURL() + "/documents/summary"
	if *supplier != "" {
		url += "?supplierId=" + *supplier
	}

	var summary map[string]interface{}
	if !getJSON(url, &summary) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Total\t%v\n", summary["total"])
	if byStatus, ok := summary["byStatus"].(map[string]interface{}); ok {
		for status, count := range byStatus {
			fmt.Fprintf(w, "%s\t%v\n", status, count)
		}
	}
	w.Flush()
}

// Helper functions
func getJSON(url string, out interface{}) bool {
	req, _ := http.NewRequest("GET", url, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		var apiErr map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		fmt.Printf("✗ Request failed (%d): %v\n", resp.StatusCode, apiErr)
		return false
	}

	json.NewDecoder(resp.Body).Decode(out)
	return true
}

func postJSON(url string, payload interface{}, out interface{}, wantStatus int) bool {
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		var apiErr map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		fmt.Printf("✗ Request failed (%d): %v\n", resp.StatusCode, apiErr)
		return false
	}

	json.NewDecoder(resp.Body).Decode(out)
	return true
}

func getAPIURL() string {
	if url := os.Getenv("PARTNERHUB_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.partnerhub/token"
}

func saveToken(token string) error {
	home, _ := os.UserHomeDir()
	os.MkdirAll(home+"/.partnerhub", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`PartnerHub CLI

Usage:
  partnerhub <command> [options]

Commands:
  auth          Authentication (register, login, logout, who)
  credential    Supplier onboarding credentials (list, stats, create, status)
  request       Partnership requests (sent, received, send, respond)
  relationship  Brand-supplier relationships (list, stats)
  document      Compliance documents (list, summary)
  admin         Operational commands (sweep)
  help          Show this help message

Environment Variables:
  PARTNERHUB_API    API endpoint (default: http://localhost:8080/api)

Examples:
  partnerhub auth register -company "Acme Brand" -kind brand -tax-id 12345678000190 -email admin@acme.com -password secret
  partnerhub auth login -email admin@acme.com -password secret
  partnerhub credential list -status ACTIVE
  partnerhub request send -supplier <company-id> -message "Let's work together"
  partnerhub document summary
`)
}
