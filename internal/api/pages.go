package api

import (
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.renderPage(w, indexTemplate, nil)
}

func (s *Server) handleCollectPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, collectTemplate, nil)
}

func (s *Server) handleQueryPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, queryTemplate, nil)
}

func (s *Server) renderPage(w http.ResponseWriter, tmpl *template.Template, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		log.Error().Err(err).Str("template", tmpl.Name()).Msg("Failed to render page")
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Smart Meter Platform</title>
    <style>` + sharedCSS + `</style>
</head>
<body>
    <div class="container">
        <h1>Smart Meter Platform</h1>
        <ul class="nav">
            <li><a href="/register">Register a meter</a></li>
            <li><a href="/collect">Collection Console</a></li>
            <li><a href="/query">Usage Query Console</a></li>
        </ul>
    </div>
</body>
</html>
`))

var collectTemplate = template.Must(template.New("collect").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Collection Console</title>
    <style>` + sharedCSS + `</style>
</head>
<body>
    <div class="container">
        <h1>Collection Console</h1>
        <p><a href="/">Back to index</a></p>

        <div class="section">
            <h2>Current Simulation Time</h2>
            <pre id="current-time">Loading...</pre>
        </div>

        <div class="section">
            <h2>Advance Time &amp; Collect Readings</h2>
            <form id="collect-form">
                <label for="increment-value">Advance by</label>
                <input type="text" id="increment-value" value="1">
                <select id="increment-unit">
                    <option value="minutes">minutes</option>
                    <option value="hours">hours</option>
                    <option value="days" selected>days</option>
                    <option value="months">months</option>
                </select>
                <button type="submit">Collect</button>
            </form>
            <p id="collect-error" class="error"></p>
            <pre id="collect-result"></pre>
        </div>
    </div>

    <script>
        function refreshTime() {
            fetch('/current_time')
                .then(function (res) {
                    if (!res.ok) { throw new Error('bad status'); }
                    return res.json();
                })
                .then(function (data) {
                    var t = data['Current Simulation Time'];
                    document.getElementById('current-time').textContent =
                        'Date: ' + t.Date + '\nTime: ' + t.Time + '\nWeekday: ' + t.Weekday;
                })
                .catch(function () {
                    document.getElementById('current-time').textContent = 'Failed to load current time';
                });
        }

        refreshTime();
        setInterval(refreshTime, 30000);

        document.getElementById('collect-form').addEventListener('submit', function (ev) {
            ev.preventDefault();
            var errorEl = document.getElementById('collect-error');
            var resultEl = document.getElementById('collect-result');
            errorEl.textContent = '';

            var value = Number(document.getElementById('increment-value').value);
            if (!Number.isInteger(value) || value < 1) {
                errorEl.textContent = 'Please enter a positive integer';
                return;
            }
            var unit = document.getElementById('increment-unit').value;

            fetch('/meter_reading', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({ value: value, unit: unit })
            })
                .then(function (res) {
                    return res.json().then(function (data) { return { ok: res.ok, data: data }; });
                })
                .then(function (r) {
                    if (r.ok) {
                        resultEl.textContent = JSON.stringify(r.data, null, 2);
                    } else {
                        errorEl.textContent = r.data.error || r.data.message || 'Collection request failed';
                    }
                })
                .catch(function () {
                    errorEl.textContent = 'Collection request failed';
                })
                .finally(refreshTime);
        });
    </script>
</body>
</html>
`))

var queryTemplate = template.Must(template.New("query").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Usage Query Console</title>
    <style>` + sharedCSS + `</style>
    <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
</head>
<body>
    <div class="container">
        <h1>Usage Query Console</h1>
        <p><a href="/">Back to index</a></p>

        <div class="section" id="login-section">
            <h2>Meter Login</h2>
            <input type="text" id="meter-id" placeholder="123-456-789">
            <button type="button" onclick="login()">Log in</button>
            <p id="login-error" class="error"></p>
        </div>

        <div class="section" id="query-section" style="display: none;">
            <h2>Power Usage</h2>
            <select id="time-range">
                <option value="today">Today</option>
                <option value="last_7_days">Last 7 days</option>
                <option value="this_month">This month</option>
                <option value="last_month">Last month</option>
            </select>
            <button type="button" onclick="queryUsage()">Query</button>
            <div class="chart-container"><canvas id="usage-chart"></canvas></div>
            <div id="usage-stats"></div>
            <p id="usage-error" class="error"></p>
        </div>

        <div class="section" id="history-section" style="display: none;">
            <h2>Monthly History</h2>
            <div class="chart-container"><canvas id="history-chart"></canvas></div>
            <table id="history-table">
                <thead>
                    <tr><th>Month</th><th>Usage (kWh)</th><th>Daily Average (kWh)</th></tr>
                </thead>
                <tbody></tbody>
            </table>
        </div>
    </div>

    <script>
        var currentMeterId = null;
        var usageChart = null;
        var historyChart = null;
        var meterIdPattern = /^\d{3}-\d{3}-\d{3}$/;

        function login() {
            var input = document.getElementById('meter-id');
            var errorEl = document.getElementById('login-error');
            errorEl.textContent = '';
            input.classList.remove('invalid');

            var meterId = input.value.trim();
            if (!meterIdPattern.test(meterId)) {
                input.classList.add('invalid');
                errorEl.textContent = 'Meter ID must match the format 123-456-789';
                return;
            }

            fetch('/validate_meter', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({ meterId: meterId })
            })
                .then(function (res) {
                    if (!res.ok) { throw new Error('Invalid Meter ID'); }
                    currentMeterId = meterId;
                    document.getElementById('query-section').style.display = 'block';
                    document.getElementById('history-section').style.display = 'block';
                    fetchMonthlyHistory(meterId);
                })
                .catch(function (err) {
                    alert('Login failed: ' + err.message);
                    errorEl.textContent = 'Login failed: ' + err.message;
                });
        }

        function fetchMonthlyHistory(meterId) {
            fetch('/monthly_history?meter_id=' + encodeURIComponent(meterId))
                .then(function (res) { return res.json(); })
                .then(function (data) {
                    if (data.error) { throw new Error(data.error); }
                    renderHistoryChart(data);
                    renderHistoryTable(data);
                })
                .catch(function (err) {
                    var p = document.createElement('p');
                    p.className = 'error';
                    p.textContent = 'Failed to load monthly history: ' + err.message;
                    document.getElementById('history-section').appendChild(p);
                });
        }

        function renderHistoryTable(data) {
            var tbody = document.querySelector('#history-table tbody');
            tbody.innerHTML = '';
            for (var i = 0; i < data.months.length; i++) {
                var row = document.createElement('tr');
                var avg = data.usage[i] / data.days[i];
                [data.months[i], data.usage[i].toFixed(3), avg.toFixed(3)].forEach(function (text) {
                    var td = document.createElement('td');
                    td.textContent = text;
                    row.appendChild(td);
                });
                tbody.appendChild(row);
            }
        }

        function renderHistoryChart(data) {
            if (historyChart) {
                historyChart.destroy();
            }
            var ctx = document.getElementById('history-chart').getContext('2d');
            historyChart = new Chart(ctx, {
                type: 'bar',
                data: {
                    labels: data.months,
                    datasets: [{
                        label: 'Monthly Usage (kWh)',
                        data: data.usage,
                        backgroundColor: 'rgba(54, 162, 235, 0.5)',
                        borderColor: 'rgba(54, 162, 235, 1)',
                        borderWidth: 1
                    }]
                },
                options: {
                    responsive: true,
                    maintainAspectRatio: false,
                    scales: { y: { beginAtZero: true } }
                }
            });
        }

        function queryUsage() {
            if (!currentMeterId) {
                alert('Please log in with a meter ID first');
                return;
            }
            var timeRange = document.getElementById('time-range').value;
            var errorEl = document.getElementById('usage-error');

            fetch('/query_usage?meter_id=' + encodeURIComponent(currentMeterId) + '&time_range=' + encodeURIComponent(timeRange))
                .then(function (res) {
                    return res.json().then(function (data) { return { ok: res.ok, data: data }; });
                })
                .then(function (r) {
                    if (!r.ok || r.data.error) {
                        throw new Error(r.data.error || 'Query failed');
                    }
                    errorEl.textContent = '';
                    renderUsageChart(r.data);
                    document.getElementById('usage-stats').textContent =
                        'Total: ' + r.data.total_usage.toFixed(3) + ' kWh, average: ' + r.data.average_usage.toFixed(3) + ' kWh';
                })
                .catch(function (err) {
                    alert('Query failed: ' + err.message);
                    errorEl.textContent = 'Query failed: ' + err.message;
                });
        }

        function renderUsageChart(data) {
            if (usageChart) {
                usageChart.destroy();
            }
            var ctx = document.getElementById('usage-chart').getContext('2d');
            usageChart = new Chart(ctx, {
                data: {
                    labels: data.dates,
                    datasets: [{
                        type: 'bar',
                        label: 'Usage (kWh)',
                        data: data.usage,
                        backgroundColor: 'rgba(75, 192, 192, 0.5)',
                        borderColor: 'rgba(75, 192, 192, 1)',
                        borderWidth: 1
                    }, {
                        type: 'line',
                        label: 'Trend',
                        data: data.usage,
                        borderColor: 'rgba(255, 99, 132, 1)',
                        fill: false,
                        tension: 0.1
                    }]
                },
                options: {
                    responsive: true,
                    maintainAspectRatio: false,
                    scales: { y: { beginAtZero: true } }
                }
            });
        }
    </script>
</body>
</html>
`))

var registerTemplate = template.Must(template.New("register").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Register Meter</title>
    <style>` + sharedCSS + `</style>
</head>
<body>
    <div class="container">
        <h1>Register Meter</h1>
        <p><a href="/">Back to index</a></p>

        <div class="section">
            <form id="register-form">
                <label for="reg-meter-id">Meter ID</label>
                <input type="text" id="reg-meter-id" placeholder="123-456-789">
                <label for="reg-area">Area</label>
                <select id="reg-area"></select>
                <label for="reg-dwelling">Dwelling type</label>
                <select id="reg-dwelling"></select>
                <button type="submit">Register</button>
            </form>
            <p id="register-error" class="error"></p>
            <pre id="register-result"></pre>
        </div>
    </div>

    <script>
        var areas = [];
        var meterIdPattern = /^\d{3}-\d{3}-\d{3}$/;

        function populateDwellings() {
            var areaSel = document.getElementById('reg-area');
            var dwellingSel = document.getElementById('reg-dwelling');
            dwellingSel.innerHTML = '';
            var area = areas.find(function (a) { return a.name === areaSel.value; });
            if (!area) { return; }
            area.dwellings.forEach(function (d) {
                var opt = document.createElement('option');
                opt.value = d;
                opt.textContent = d;
                dwellingSel.appendChild(opt);
            });
        }

        fetch('/api/areas')
            .then(function (res) { return res.json(); })
            .then(function (data) {
                areas = data.areas;
                var areaSel = document.getElementById('reg-area');
                areas.forEach(function (a) {
                    var opt = document.createElement('option');
                    opt.value = a.name;
                    opt.textContent = a.name;
                    areaSel.appendChild(opt);
                });
                areaSel.addEventListener('change', populateDwellings);
                populateDwellings();
            })
            .catch(function () {
                document.getElementById('register-error').textContent = 'Failed to load area data';
            });

        document.getElementById('register-form').addEventListener('submit', function (ev) {
            ev.preventDefault();
            var errorEl = document.getElementById('register-error');
            var resultEl = document.getElementById('register-result');
            errorEl.textContent = '';
            resultEl.textContent = '';

            var meterId = document.getElementById('reg-meter-id').value.trim();
            if (!meterIdPattern.test(meterId)) {
                errorEl.textContent = 'Meter ID must match the format 123-456-789';
                return;
            }

            fetch('/register', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({
                    meterId: meterId,
                    area: document.getElementById('reg-area').value,
                    dwelling: document.getElementById('reg-dwelling').value
                })
            })
                .then(function (res) { return res.json(); })
                .then(function (data) {
                    if (data.success) {
                        resultEl.textContent = JSON.stringify(data.account, null, 2);
                    } else {
                        errorEl.textContent = data.message || 'Registration failed';
                    }
                })
                .catch(function () {
                    errorEl.textContent = 'Registration failed';
                });
        });
    </script>
</body>
</html>
`))

const sharedCSS = `
        body {
            font-family: 'Segoe UI', Tahoma, sans-serif;
            background: #f4f6f8;
            color: #222;
            margin: 0;
            padding: 20px;
        }
        .container {
            max-width: 900px;
            margin: 0 auto;
        }
        .section {
            background: #fff;
            border-radius: 8px;
            box-shadow: 0 1px 3px rgba(0, 0, 0, 0.1);
            padding: 20px;
            margin-bottom: 20px;
        }
        .nav li {
            margin-bottom: 8px;
        }
        .error {
            color: #c0392b;
        }
        input.invalid {
            border-color: #c0392b;
            outline-color: #c0392b;
        }
        .chart-container {
            position: relative;
            height: 300px;
            margin: 15px 0;
        }
        table {
            border-collapse: collapse;
            width: 100%;
        }
        th, td {
            border: 1px solid #ddd;
            padding: 6px 10px;
            text-align: left;
        }
        pre {
            background: #f0f0f0;
            padding: 10px;
            border-radius: 4px;
            overflow-x: auto;
        }
`
