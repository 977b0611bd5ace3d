// Package server serves the built-in booking page. The page is embedded in
// the binary so the server has no runtime file dependencies.
package server

import (
	"fmt"
	"log"
	"net/http"
)

// PageHandler serves the HTML booking page. It connects back to this server
// over WebSocket, submits bookings, and renders the live list and status
// updates pushed by the hub.
func PageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, bookingPage); err != nil {
		log.Printf("Error writing HTML response: %v", err)
	}
}

const bookingPage = `<!DOCTYPE html>
<html>
<head>
    <title>Tablecast Booking</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; max-width: 720px; }
        form { display: grid; gap: 8px; max-width: 360px; margin-bottom: 20px; }
        input, button { padding: 6px; }
        button { background-color: #007cba; color: white; border: none; cursor: pointer; }
        button:hover { background-color: #005a87; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
        #log { border: 1px solid #ccc; height: 160px; padding: 8px; overflow-y: scroll; background: #f9f9f9; }
        table { border-collapse: collapse; width: 100%; }
        td, th { border: 1px solid #ddd; padding: 4px 8px; text-align: left; }
        .pending { color: #856404; }
        .confirmed { color: #155724; }
    </style>
</head>
<body>
    <h1>Tablecast</h1>
    <div id="status" class="status disconnected">Disconnected</div>

    <form id="bookingForm">
        <input id="restaurant" placeholder="Restaurant" required>
        <input id="date" type="date" required>
        <input id="time" type="time" required>
        <input id="guests" type="number" min="1" placeholder="Guests" required>
        <input id="name" placeholder="Your name" required>
        <input id="phone" placeholder="Phone" required>
        <input id="specialRequests" placeholder="Special requests (optional)">
        <button type="submit">Book a table</button>
    </form>

    <h2>Bookings</h2>
    <table>
        <thead><tr><th>ID</th><th>Restaurant</th><th>Date</th><th>Time</th><th>Guests</th><th>Status</th></tr></thead>
        <tbody id="bookings"></tbody>
    </table>

    <h2>Events</h2>
    <div id="log"></div>

    <script>
        const statusDiv = document.getElementById('status');
        const logDiv = document.getElementById('log');
        const tbody = document.getElementById('bookings');
        let ws = null;

        function logEvent(text) {
            const el = document.createElement('div');
            el.textContent = text;
            logDiv.appendChild(el);
            logDiv.scrollTop = logDiv.scrollHeight;
        }

        function renderBookings(bookings) {
            tbody.innerHTML = '';
            bookings.forEach(b => {
                const row = document.createElement('tr');
                row.innerHTML = '<td>' + b.id + '</td><td>' + b.restaurant + '</td><td>' + b.date +
                    '</td><td>' + b.time + '</td><td>' + b.guests +
                    '</td><td class="' + b.status + '">' + b.status + '</td>';
                tbody.appendChild(row);
            });
        }

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/');

            ws.onopen = () => {
                statusDiv.textContent = 'Connected';
                statusDiv.className = 'status connected';
            };

            ws.onmessage = (event) => {
                const msg = JSON.parse(event.data);
                switch (msg.type) {
                    case 'connection':
                        logEvent(msg.message);
                        break;
                    case 'bookings_update':
                    case 'bookings_list':
                        renderBookings(msg.bookings);
                        break;
                    case 'booking_confirmation':
                        logEvent(msg.message);
                        break;
                    case 'booking_status_update':
                        logEvent(msg.message);
                        ws.send(JSON.stringify({type: 'get_bookings'}));
                        break;
                    case 'error':
                        logEvent('Error: ' + msg.message);
                        break;
                }
            };

            ws.onclose = () => {
                statusDiv.textContent = 'Disconnected';
                statusDiv.className = 'status disconnected';
                setTimeout(connect, 2000);
            };
        }

        document.getElementById('bookingForm').addEventListener('submit', (e) => {
            e.preventDefault();
            if (!ws || ws.readyState !== WebSocket.OPEN) {
                logEvent('Not connected');
                return;
            }
            ws.send(JSON.stringify({
                type: 'new_booking',
                restaurant: document.getElementById('restaurant').value,
                date: document.getElementById('date').value,
                time: document.getElementById('time').value,
                guests: document.getElementById('guests').value,
                name: document.getElementById('name').value,
                phone: document.getElementById('phone').value,
                specialRequests: document.getElementById('specialRequests').value
            }));
        });

        connect();
    </script>
</body>
</html>`
